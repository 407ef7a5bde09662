package cipher

import "testing"

func TestEqual(t *testing.T) {
	cases := []struct {
		answer, expected string
		opts             []CompareOption
		want             bool
	}{
		{"  Trojan ", "trojan", nil, true},
		{"TROJAN", "trojan", nil, true},
		{"trojans", "trojan", nil, false},
		{"Trojan", "trojan", []CompareOption{CaseSensitive()}, false},
		{" trojan\t", "trojan", []CompareOption{CaseSensitive()}, true},
	}
	for _, tc := range cases {
		if got := Equal(tc.answer, tc.expected, tc.opts...); got != tc.want {
			t.Fatalf("Equal(%q,%q) = %v; want %v", tc.answer, tc.expected, got, tc.want)
		}
	}
}

func TestHint(t *testing.T) {
	cases := []struct {
		plain  string
		reveal int
		want   string
	}{
		{"trojan", 2, "tr____"},
		{"dns tunnel", 3, "dns_______"},
		{"ab", 2, "ab"},
		{"a", 2, "a"},
		{"café", 3, "caf_"},
		{"worm", 0, "____"},
	}
	for _, tc := range cases {
		if got := Hint(tc.plain, tc.reveal); got != tc.want {
			t.Fatalf("Hint(%q,%d) = %q; want %q", tc.plain, tc.reveal, got, tc.want)
		}
	}
}
