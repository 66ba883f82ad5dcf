package models

// Profile represents a participant identity.
//
// Profiles are created and managed by the surrounding application; the
// settlement core only reads them. A profile referenced by any expense
// must be treated as immutable.
type Profile struct {
	// ID is the unique identifier for the profile (UUID format).
	ID string

	// Name is the display name shown in balances and settlement plans.
	Name string

	// CreatedAt is the Unix timestamp when the profile was created.
	CreatedAt int64
}
