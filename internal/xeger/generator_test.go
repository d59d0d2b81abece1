package xeger

import "testing"

func newGen(t *testing.T, cfg Config) *XegerGenerator {
	t.Helper()
	g, err := NewXegerGenerator(cfg)
	if err != nil {
		t.Fatalf("NewXegerGenerator: %v", err)
	}
	return g
}

func TestXegerGeneratorLiteralFiller(t *testing.T) {
	g := newGen(t, Config{Size: 1024, Filler: "0"})
	got := string(g.Read(0, 15))
	want := "0000000000000000"
	if got != want {
		t.Errorf("Read(0,15) = %q, want %q", got, want)
	}
}

func TestXegerGeneratorMultiplierFillerOverflowsToPadder(t *testing.T) {
	g := newGen(t, Config{Size: 16, Filler: "a(bc){5}d"})
	got := string(g.Read(0, 15))
	want := "abcbcbcbcbcd0000"
	if got != want {
		t.Errorf("Read(0,15) = %q, want %q", got, want)
	}
}

func TestXegerGeneratorPadderAndSuffixTail(t *testing.T) {
	g := newGen(t, Config{
		Size:   64,
		Filler: "55555",
		Padder: "longer",
		Suffix: "9999999999",
	})
	full := g.Read(0, 63)
	if len(full) != 64 {
		t.Fatalf("len(Read(0,63)) = %d, want 64", len(full))
	}
	got := string(full[len(full)-15:])
	want := "5long9999999999"
	if got != want {
		t.Errorf("tail = %q, want %q", got, want)
	}
}

func TestXegerGeneratorRemainderCarriesToNextSequentialRead(t *testing.T) {
	g := newGen(t, Config{Size: 1024, Filler: "a(bc){5}d"})
	first := g.Read(0, 15)
	if got, want := string(first), "abcbcbcbcbcdabcb"; got != want {
		t.Fatalf("Read(0,15) = %q, want %q", got, want)
	}
	if got, want := string(g.remainder), "cbcbcbcd"; got != want {
		t.Fatalf("remainder = %q, want %q", got, want)
	}
}

func TestXegerGeneratorNonSequentialReadDiscardsRemainder(t *testing.T) {
	g := newGen(t, Config{Size: 1024, Filler: "a(bc){5}d"})
	g.Read(0, 15)
	if len(g.remainder) == 0 {
		t.Fatal("expected a non-empty remainder after the first read")
	}
	// The stale "cbcbcbcd" remainder must not lead a non-sequential read: a
	// fresh emission starts at offset 100, and that read's own overrun tail
	// becomes the new remainder.
	if got, want := string(g.Read(100, 105)), "abcbcb"; got != want {
		t.Errorf("Read(100,105) = %q, want %q", got, want)
	}
	if got, want := string(g.remainder), "cbcbcd"; got != want {
		t.Errorf("remainder = %q, want %q after a non-sequential read", got, want)
	}
}

func TestXegerGeneratorPrefixRegion(t *testing.T) {
	g := newGen(t, Config{Size: 32, Prefix: "HEADER", Filler: "0"})
	got := string(g.Read(0, 5))
	if got != "HEADER" {
		t.Errorf("Read(0,5) = %q, want %q", got, "HEADER")
	}
}

func TestXegerGeneratorSuffixRegion(t *testing.T) {
	g := newGen(t, Config{Size: 32, Filler: "0", Suffix: "TRAILER"})
	got := string(g.Read(25, 31))
	if got != "TRAILER" {
		t.Errorf("Read(25,31) = %q, want %q", got, "TRAILER")
	}
}

func TestXegerGeneratorClampsToFileBounds(t *testing.T) {
	g := newGen(t, Config{Size: 10, Filler: "0"})
	got := g.Read(5, 1000)
	if len(got) != 5 {
		t.Errorf("len(Read(5,1000)) = %d, want 5 (max(0, L-off))", len(got))
	}
}

func TestXegerGeneratorEmptyFillerDefaultsToZero(t *testing.T) {
	g := newGen(t, Config{Size: 8, Filler: ""})
	got := string(g.Read(0, 7))
	if got != "00000000" {
		t.Errorf("Read(0,7) = %q, want %q", got, "00000000")
	}
}

func TestXegerGeneratorSetMembership(t *testing.T) {
	g := newGen(t, Config{Size: 1000, Filler: "[0-9]+"})
	got := g.Read(0, 999)
	for _, b := range got {
		if b < '0' || b > '9' {
			t.Fatalf("byte %q outside set [0-9]", b)
		}
	}
}
