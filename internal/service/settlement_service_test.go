package service

import (
	"fmt"
	"net/http"
	"testing"
)

func TestSettlementService_RecordZeroesBalances(t *testing.T) {
	server := setupTestServer(t)
	groupID := createTestGroup(t, server.URL, "alice", "bob")

	// 100.00 paid by alice, split equally: bob owes 50.00.
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/groups/%s/expenses", server.URL, groupID), expensePayload{
		Description:  "Dinner",
		AmountCents:  10000,
		PayerID:      "alice",
		Split:        "equal",
		Participants: []string{"alice", "bob"},
	}, nil)

	// Bob pays the suggested transfer.
	var recorded settlementMutationResponse
	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/groups/%s/settlements", server.URL, groupID), settlementPayload{
		From:        "bob",
		To:          "alice",
		AmountCents: 5000,
		Note:        "paid in cash",
	}, &recorded)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("RecordSettlement returned %d", resp.StatusCode)
	}
	if recorded.Settlement == nil || recorded.Settlement.ID == "" {
		t.Fatal("expected settlement ID to be generated")
	}

	snap := recorded.Snapshot
	for id, b := range snap.Balances {
		if b != 0 {
			t.Errorf("balance[%s] = %d after settle-up, want 0", id, b)
		}
	}
	if len(snap.Settlements) != 0 {
		t.Errorf("suggested settlements = %v, want empty after settle-up", snap.Settlements)
	}

	// The balances view agrees immediately.
	var view snapshotPayload
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/groups/%s/balances", server.URL, groupID), nil, &view)
	if view.Balances["bob"] != 0 {
		t.Errorf("balances view = %v, want bob 0", view.Balances)
	}

	// The payment shows up as recorded history.
	var history []settlementPayload
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/groups/%s/settlements/recorded", server.URL, groupID), nil, &history)
	if len(history) != 1 || history[0].AmountCents != 5000 {
		t.Errorf("recorded settlements = %v, want a single 5000 payment", history)
	}
}

func TestSettlementService_DeleteRestoresDebt(t *testing.T) {
	server := setupTestServer(t)
	groupID := createTestGroup(t, server.URL, "alice", "bob")

	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/groups/%s/expenses", server.URL, groupID), expensePayload{
		Description:  "Dinner",
		AmountCents:  10000,
		PayerID:      "alice",
		Split:        "equal",
		Participants: []string{"alice", "bob"},
	}, nil)

	var recorded settlementMutationResponse
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/groups/%s/settlements", server.URL, groupID), settlementPayload{
		From:        "bob",
		To:          "alice",
		AmountCents: 5000,
	}, &recorded)

	var deleted settlementMutationResponse
	resp := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/settlements/%s", server.URL, recorded.Settlement.ID), nil, &deleted)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DeleteSettlement returned %d", resp.StatusCode)
	}
	if deleted.Snapshot.Balances["bob"] != -5000 {
		t.Errorf("balances after removal = %v, want bob -5000", deleted.Snapshot.Balances)
	}
	if len(deleted.Snapshot.Settlements) != 1 {
		t.Errorf("suggested settlements after removal = %v, want the debt back", deleted.Snapshot.Settlements)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/settlements/%s", server.URL, recorded.Settlement.ID), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("DeleteSettlement twice returned %d, want 404", resp.StatusCode)
	}
}

func TestSettlementService_RejectsInvalidPayments(t *testing.T) {
	server := setupTestServer(t)
	groupID := createTestGroup(t, server.URL, "alice", "bob")

	tests := []struct {
		name       string
		payload    settlementPayload
		wantStatus int
	}{
		{
			name:       "non-positive amount",
			payload:    settlementPayload{From: "bob", To: "alice", AmountCents: 0},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "self payment",
			payload:    settlementPayload{From: "bob", To: "bob", AmountCents: 500},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "payer outside the group",
			payload:    settlementPayload{From: "mallory", To: "alice", AmountCents: 500},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "receiver outside the group",
			payload:    settlementPayload{From: "bob", To: "mallory", AmountCents: 500},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/groups/%s/settlements", server.URL, groupID), tt.payload, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("RecordSettlement returned %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	// Rejected payments leave no recorded settlements behind.
	var history []settlementPayload
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/groups/%s/settlements/recorded", server.URL, groupID), nil, &history)
	if len(history) != 0 {
		t.Errorf("got %d recorded settlements after rejected payments, want 0", len(history))
	}
}
