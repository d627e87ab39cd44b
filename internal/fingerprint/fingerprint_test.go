package fingerprint

import "testing"

func TestComputeDeterministic(t *testing.T) {
	a := Compute("student-1", "inst-1", "BSc Thesis", "degree", "nonce-1")
	b := Compute("student-1", "inst-1", "BSc Thesis", "degree", "nonce-1")

	if a != b {
		t.Errorf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeNonceChangesFingerprint(t *testing.T) {
	a := Compute("student-1", "inst-1", "BSc Thesis", "degree", Nonce())
	b := Compute("student-1", "inst-1", "BSc Thesis", "degree", Nonce())

	if a == b {
		t.Error("two submissions with fresh nonces must not collide")
	}
}

func TestComputeInputSensitivity(t *testing.T) {
	base := Compute("student-1", "inst-1", "BSc Thesis", "degree", "n")

	variants := []string{
		Compute("student-2", "inst-1", "BSc Thesis", "degree", "n"),
		Compute("student-1", "inst-2", "BSc Thesis", "degree", "n"),
		Compute("student-1", "inst-1", "MSc Thesis", "degree", "n"),
		Compute("student-1", "inst-1", "BSc Thesis", "transcript", "n"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base fingerprint", i)
		}
	}
}

func TestNonceUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := Nonce()
		if seen[n] {
			t.Fatalf("duplicate nonce: %s", n)
		}
		seen[n] = true
	}
}
