package dna

import "testing"

func TestRevComp(t *testing.T) {
	seq, err := FromString("ACGT")
	if err != nil {
		t.Fatal(err)
	}
	rc := seq.RevComp()
	if got, want := rc.String(), "ACGT"; got != want {
		t.Errorf("RevComp(ACGT) = %s, want %s", got, want)
	}

	seq2, err := FromString("AACG")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := seq2.RevComp().String(), "CGTT"; got != want {
		t.Errorf("RevComp(AACG) = %s, want %s", got, want)
	}
	// Reverse-complementing twice is the identity.
	if got := seq2.RevComp().RevComp(); !got.Equal(seq2) {
		t.Errorf("RevComp(RevComp(%v)) = %v, want %v", seq2, got, seq2)
	}
}

func TestLess(t *testing.T) {
	a, _ := FromString("AC")
	b, _ := FromString("ACG")
	c, _ := FromString("AG")
	if !a.Less(b) {
		t.Errorf("expected AC < ACG")
	}
	if !b.Less(c) {
		t.Errorf("expected ACG < AG")
	}
	if a.Less(a) {
		t.Errorf("expected AC !< AC")
	}
}

func TestSharedPrefixLen(t *testing.T) {
	a, _ := FromString("ACGTAC")
	b, _ := FromString("ACGTTT")
	if got, want := SharedPrefixLen(a, b), 4; got != want {
		t.Errorf("SharedPrefixLen = %d, want %d", got, want)
	}
}

func TestHasPrefix(t *testing.T) {
	a, _ := FromString("ACGTAC")
	p, _ := FromString("ACGT")
	if !a.HasPrefix(p) {
		t.Errorf("expected HasPrefix true")
	}
	if p.HasPrefix(a) {
		t.Errorf("expected HasPrefix false for longer prefix arg")
	}
}

func TestInvalidBase(t *testing.T) {
	if _, err := FromString("ACGX"); err == nil {
		t.Errorf("expected error for invalid base")
	}
}
