package chem

import "testing"

// TestCanonicalizeIsIdempotent exercises property P1: canonicalizing a
// canonical SMILES yields the same string.
func TestCanonicalizeIsIdempotent(t *testing.T) {
	inputs := []string{"CCO", "OCC", "c1ccccc1", "CC(C)C", "C=CC#N", "[NH2]CC"}
	for _, in := range inputs {
		once, err := Canonicalize(in)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", in, err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: Canonicalize(%q)=%q but Canonicalize(%q)=%q", in, once, once, twice)
		}
	}
}

// TestCanonicalizeEquivalentForms exercises property P2: two SMILES
// spellings of the same molecule (ethanol written forward and backward)
// canonicalize to the same string.
func TestCanonicalizeEquivalentForms(t *testing.T) {
	a, err := Canonicalize("CCO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Canonicalize("OCC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected equivalent SMILES to canonicalize identically: %q vs %q", a, b)
	}
}

func TestCanonicalizeRejectsInvalid(t *testing.T) {
	if _, err := Canonicalize("NOT_A_MOL"); err == nil {
		t.Fatal("expected error for invalid SMILES")
	}
}

func TestCanonicalSMILESRoundTripsParseable(t *testing.T) {
	mol, err := ParseSMILES("CC(=O)O")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	canon := CanonicalSMILES(mol)
	if canon == "" {
		t.Fatal("expected non-empty canonical SMILES")
	}
	if _, err := ParseSMILES(canon); err != nil {
		t.Fatalf("canonical SMILES %q failed to reparse: %v", canon, err)
	}
}
