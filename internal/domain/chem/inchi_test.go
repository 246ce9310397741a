package chem

import (
	"regexp"
	"testing"
)

var inchiKeyShape = regexp.MustCompile(`^[A-Z]{14}-[A-Z]{10}-[A-Z]$`)

func TestInChIKeyShape(t *testing.T) {
	mol, err := ParseSMILES("CCO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := InChIKey(InChI(mol))
	if !inchiKeyShape.MatchString(key) {
		t.Fatalf("InChIKey %q does not match the standard 14-10-1 shape", key)
	}
}

// TestInChIKeyConsistentForEquivalentSMILES exercises property P2's InChIKey
// half: two SMILES spellings of the same molecule produce the same key.
func TestInChIKeyConsistentForEquivalentSMILES(t *testing.T) {
	a, _ := ParseSMILES("CCO")
	b, _ := ParseSMILES("OCC")
	keyA := InChIKey(InChI(a))
	keyB := InChIKey(InChI(b))
	if keyA != keyB {
		t.Fatalf("expected equivalent SMILES to yield the same InChIKey: %q vs %q", keyA, keyB)
	}
}

func TestInChIKeyDiffersForDifferentMolecules(t *testing.T) {
	ethanol, _ := ParseSMILES("CCO")
	methanol, _ := ParseSMILES("CO")
	keyA := InChIKey(InChI(ethanol))
	keyB := InChIKey(InChI(methanol))
	if keyA == keyB {
		t.Fatal("expected distinct molecules to yield distinct InChIKeys")
	}
}

func TestInChIIncludesFormula(t *testing.T) {
	mol, _ := ParseSMILES("CCO")
	inchi := InChI(mol)
	if want := "C2H6O"; !regexp.MustCompile(regexp.QuoteMeta(want)).MatchString(inchi) {
		t.Fatalf("expected InChI to contain formula %s, got %s", want, inchi)
	}
}
