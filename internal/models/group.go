package models

// Group represents a set of profiles sharing expenses.
//
// Every expense belonging to a group must name a payer and participants
// drawn from Members; the calculator rejects expenses that reference
// anyone else. Member order is preserved for display purposes only, it
// has no effect on balance math.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Roommates").
	Name string

	// Members is the list of profile IDs in this group.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether the profile is a member of the group.
func (g *Group) HasMember(profileID string) bool {
	for _, m := range g.Members {
		if m == profileID {
			return true
		}
	}
	return false
}
