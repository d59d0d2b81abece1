package sizename

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		want int64
	}{
		{"100K", 100_000},
		{"4M", 4_000_000},
		{"4M-1B", 3_999_999},
		{"4M+1B", 4_000_001},
		{"1.5G", 1_500_000_000},
		{"5B", 5},
		{"128M-1B", 127_999_999},
	}
	for _, c := range cases {
		got, err := Parse(c.name)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestParseClampsNegativeToZero(t *testing.T) {
	got, err := Parse("1B-5B")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != 0 {
		t.Errorf("Parse(1B-5B) = %d, want 0", got)
	}
}

func TestParseRejectsBadFilenames(t *testing.T) {
	cases := []string{
		"",
		"notasize",
		"5X",
		"5",
		"5.55B",
		"M5",
	}
	for _, name := range cases {
		if _, err := Parse(name); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", name)
		}
	}
}
