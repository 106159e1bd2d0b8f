package normalize

import "testing"

func TestName(t *testing.T) {
	tests := map[string]string{
		"BBC One HD":        "bbc one",
		"ITV1 HD":           "itv1",
		"Channel 4 +1":      "channel 4 plus 1",
		"Sky Sports F1 UHD": "sky sports f1",
		"TéléToon":          "teletoon",
		"A&E":               "a and e",
		"CNN (International) 1080p": "cnn",
		"Das Erste [DE] HEVC":       "das erste",
		"  Spaced   Out  ":          "spaced out",
		"":                          "",
	}
	for in, want := range tests {
		if got := Name(in); got != want {
			t.Fatalf("Name(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"BBC One HD", "Channel 4 +1", "TéléToon", "A&E", "CNN (Intl)",
		"h.265 Movies 4K", "5 USA+1",
	}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Fatalf("Name not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	toks := Tokens("BBC One One HD")
	if len(toks) != 2 {
		t.Fatalf("Tokens dedup failed: %v", toks)
	}
	if _, ok := toks["bbc"]; !ok {
		t.Fatalf("missing token bbc: %v", toks)
	}
	if Tokens("   ") != nil {
		t.Fatalf("blank input should yield nil set")
	}
}

func TestCompact(t *testing.T) {
	if got := Compact("BBC-One.uk"); got != "bbconeuk" {
		t.Fatalf("Compact=%q", got)
	}
}

func TestJaccard(t *testing.T) {
	a := Tokens("bbc one london")
	b := Tokens("bbc one")
	if got := Jaccard(a, b); got != 2.0/3.0 {
		t.Fatalf("Jaccard=%v want 2/3", got)
	}
	if Jaccard(nil, b) != 0 {
		t.Fatalf("empty set must score 0")
	}
	if Jaccard(a, a) != 1 {
		t.Fatalf("identical sets must score 1")
	}
}
