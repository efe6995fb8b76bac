package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAdjustmentType(t *testing.T) {
	valid := []string{
		"COUNT_CORRECTION", "DAMAGE", "EXPIRY", "THEFT", "LOSS",
		"FOUND", "QUALITY_ISSUE", "SYSTEM_CORRECTION", "OTHER",
	}
	for _, s := range valid {
		if _, err := ParseAdjustmentType(s); err != nil {
			t.Errorf("ParseAdjustmentType(%q) unexpected error: %v", s, err)
		}
	}

	for _, s := range []string{"", "damage", "SHRINKAGE"} {
		_, err := ParseAdjustmentType(s)
		if !errors.Is(err, ErrInvalidAdjustmentType) {
			t.Errorf("ParseAdjustmentType(%q) = %v, want ErrInvalidAdjustmentType", s, err)
		}
	}
}

func TestNewAdjustmentRecord(t *testing.T) {
	adj, err := NewAdjustmentRecord("ITM-001", AdjustmentDamage, -4, "dropped pallet", "", "warehouse-1")
	if err != nil {
		t.Fatalf("NewAdjustmentRecord returned error: %v", err)
	}
	if !strings.HasPrefix(adj.AdjustmentID, "ADJ-") {
		t.Errorf("adjustment id %q should start with ADJ-", adj.AdjustmentID)
	}
	if adj.Quantity != -4 {
		t.Errorf("Quantity = %d, want -4", adj.Quantity)
	}

	if _, err := NewAdjustmentRecord("ITM-001", AdjustmentType("BOGUS"), 1, "", "", ""); !errors.Is(err, ErrInvalidAdjustmentType) {
		t.Errorf("expected ErrInvalidAdjustmentType, got %v", err)
	}
}
