package recon

import "testing"

func TestMatchPrefixRule(t *testing.T) {
	m := NewMatcher()

	got, ok := m.Match("HF-Blue-998877", []string{"HF-Blue", "HF-Trans"})
	if !ok || got != "HF-Blue" {
		t.Fatalf("Match = %q, %v; want HF-Blue via prefix rule", got, ok)
	}

	// Prefix rule returns the original candidate name, not the
	// normalized form.
	got, ok = m.Match("hf-trans-000001", []string{"HF-Blue", "HF-Trans"})
	if !ok || got != "HF-Trans" {
		t.Fatalf("Match = %q, %v; want HF-Trans", got, ok)
	}
}

func TestMatchTokenOrderInsensitive(t *testing.T) {
	m := NewMatcher()
	got, ok := m.Match("blue widget", []string{"Red Widget", "Widget Blue"})
	if !ok || got != "Widget Blue" {
		t.Fatalf("Match = %q, %v; want Widget Blue", got, ok)
	}
}

func TestMatchBelowThreshold(t *testing.T) {
	m := NewMatcher()
	if got, ok := m.Match("zzz", []string{"HF-Blue"}); ok {
		t.Fatalf("Match(zzz) = %q; want no match", got)
	}
}

func TestMatchStableTieBreak(t *testing.T) {
	// Both candidates normalize identically; the first wins.
	m := NewMatcher()
	got, ok := m.Match("widget", []string{"Widget", "widget"})
	if !ok || got != "Widget" {
		t.Fatalf("Match = %q, %v; want first candidate Widget", got, ok)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	m := NewMatcher()
	if _, ok := m.Match("anything", nil); ok {
		t.Fatal("Match with no candidates should not match")
	}
	if _, ok := m.Match("", []string{"HF-Blue"}); ok {
		t.Fatal("empty query should not match")
	}
}
