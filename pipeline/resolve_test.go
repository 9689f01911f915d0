package pipeline

import (
	"testing"

	"github.com/aluiziolira/mp-attendance/models"
)

func TestResolveHouseRecords(t *testing.T) {
	roster := []models.Member{
		{ID: "10", Name: "Hon. Anura Kumara Dissanayake"},
		{ID: "11", Name: "Hon. Sajith Premadasa"},
		{ID: "12", Name: "Dr. Harini Amarasuriya"},
	}

	tests := []struct {
		name      string
		record    string
		wantID    string
		wantExact bool
	}{
		{name: "exact with prefix", record: "Hon. Sajith Premadasa", wantID: "11", wantExact: true},
		{name: "exact after normalization", record: "harini   amarasuriya", wantID: "12", wantExact: true},
		{name: "fuzzy spelling", record: "Hon. Anura Kumara Dissanayaka", wantID: "10"},
		{name: "no match", record: "Hon. Someone Else Entirely", wantID: ""},
		{name: "empty name", record: "", wantID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []models.HouseRecord{{Date: "2025-01-07", Name: tt.record, Status: models.StatusPresent}}
			got := ResolveHouseRecords(records, roster, 0.85)
			if len(got) != 1 {
				t.Fatalf("resolved = %d records, want 1", len(got))
			}
			if got[0].MemberID != tt.wantID {
				t.Fatalf("member id = %q (score %.3f), want %q", got[0].MemberID, got[0].Score, tt.wantID)
			}
			if tt.wantExact && got[0].Score != 1 {
				t.Fatalf("score = %v, want 1 for exact match", got[0].Score)
			}
			if got[0].HouseRecord != records[0] {
				t.Fatalf("house record changed: %+v", got[0].HouseRecord)
			}
		})
	}
}

func TestResolveHouseRecordsThreshold(t *testing.T) {
	roster := []models.Member{{ID: "1", Name: "Hon. Kamala Silva"}}
	records := []models.HouseRecord{{Name: "Hon. Kamal Silvaa"}}

	if got := ResolveHouseRecords(records, roster, 1.01); got[0].MemberID != "" {
		t.Fatalf("matched %q above an unreachable threshold", got[0].MemberID)
	}
	if got := ResolveHouseRecords(records, roster, 0.5); got[0].MemberID != "1" {
		t.Fatalf("member id = %q, want 1 at a loose threshold", got[0].MemberID)
	}
}
