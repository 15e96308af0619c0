package fingerprint

import "testing"

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		" Foo  bar ",
		"Already normalized",
		"Tabs\tand\nnewlines",
		"MIXED Case  Text",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_CollapsesWhitespaceAndCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" Foo  bar ", "foo bar"},
		{"foo bar", "foo bar"},
		{"A\t B\n\nC", "a b c"},
		{"  leading and trailing  ", "leading and trailing"},
		{"UPPER", "upper"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_EquivalentInputs(t *testing.T) {
	if Normalize(" Foo  bar ") != Normalize("foo bar") {
		t.Error("expected ' Foo  bar ' and 'foo bar' to normalize equally")
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	opts := []string{"Paris", "London", "Berlin", "Madrid"}

	a := Fingerprint("Geography", "Capital of France?", opts)
	b := Fingerprint("Geography", "Capital of France?", opts)
	if a != b {
		t.Errorf("fingerprint not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(a))
	}
}

func TestFingerprint_OrderSensitive(t *testing.T) {
	a := Fingerprint("Physics", "What is F=ma?", []string{"Newton's second law", "Ohm's law", "Hooke's law", "Boyle's law"})
	b := Fingerprint("Physics", "What is F=ma?", []string{"Ohm's law", "Newton's second law", "Hooke's law", "Boyle's law"})
	if a == b {
		t.Error("swapping option order should change the fingerprint")
	}
}

func TestFingerprint_NormalizesFields(t *testing.T) {
	a := Fingerprint("  Physics ", "What  is   light?", []string{"A wave", "a  PARTICLE", "Both", "Neither"})
	b := Fingerprint("physics", "what is light?", []string{"a wave", "a particle", "both", "neither"})
	if a != b {
		t.Error("fingerprint should be insensitive to case and whitespace differences")
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Content shifted across a field boundary must not collide.
	a := Fingerprint("math", "ab", []string{"c"})
	b := Fingerprint("math", "a", []string{"bc"})
	if a == b {
		t.Error("distinct field splits should not collide")
	}
}
