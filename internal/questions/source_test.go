package questions

import (
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"cypher_arena/internal/cipher"
)

func TestDefaultCorpus(t *testing.T) {
	c, err := DefaultCorpus()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Easy) < 40 || len(c.Medium) < 40 || len(c.Hard) < 40 {
		t.Fatalf("corpus too small: easy=%d medium=%d hard=%d", len(c.Easy), len(c.Medium), len(c.Hard))
	}
	if err := ValidateBands(DefaultBands(), 15); err != nil {
		t.Fatal(err)
	}
}

func TestBandFor(t *testing.T) {
	bands := DefaultBands()
	all := cipher.AllSchemes()
	cases := []struct {
		round   int
		schemes []cipher.Scheme
		tier    Tier
	}{
		{1, []cipher.Scheme{cipher.ROT13}, TierEasy},
		{5, []cipher.Scheme{cipher.ROT13, cipher.Hex}, TierEasy},
		{8, []cipher.Scheme{cipher.ROT13, cipher.Hex, cipher.Base64, cipher.URL}, TierMedium},
		{11, all, TierMedium},
		{15, all, TierHard},
		{20, all, TierHard},
		{0, []cipher.Scheme{cipher.ROT13}, TierEasy},
	}
	for _, tc := range cases {
		b := BandFor(bands, tc.round)
		if !reflect.DeepEqual(b.Schemes, tc.schemes) || b.Tier != tc.tier {
			t.Fatalf("round %d: got %v/%s; want %v/%s", tc.round, b.Schemes, b.Tier, tc.schemes, tc.tier)
		}
	}
}

func TestValidateBandsRejectsGaps(t *testing.T) {
	bands := DefaultBands()
	bands[1].From = 5
	if err := ValidateBands(bands, 15); err == nil {
		t.Fatal("gap accepted")
	}
	if err := ValidateBands(DefaultBands(), 16); err == nil {
		t.Fatal("short coverage accepted")
	}
}

func TestNextQuestionsDecode(t *testing.T) {
	src, err := NewDefaultSource(WithRand(rand.New(rand.NewPCG(7, 11))))
	if err != nil {
		t.Fatal(err)
	}
	for round := 1; round <= 20; round++ {
		band := BandFor(DefaultBands(), round)
		for i := 0; i < 10; i++ {
			q, err := src.Next(round)
			if err != nil {
				t.Fatalf("Next(%d): %v", round, err)
			}
			got, err := cipher.Decode(q.Encoded, q.Scheme, q.Key)
			if err != nil || got != q.Plaintext {
				t.Fatalf("round %d: %q under %s decodes to %q (%v)", round, q.Encoded, q.Scheme, got, err)
			}
			allowed := false
			for _, sc := range band.Schemes {
				allowed = allowed || sc == q.Scheme
			}
			if !allowed {
				t.Fatalf("round %d used scheme %s outside band %s", round, q.Scheme, band.Name)
			}
			if (q.Scheme == cipher.XOR) != (q.Key != nil) {
				t.Fatalf("round %d: key presence does not match scheme %s", round, q.Scheme)
			}
		}
	}
}

func smallCorpus(n int) Corpus {
	var c Corpus
	for i := 0; i < n; i++ {
		c.Easy = append(c.Easy, Phrase{Text: "phrase" + strings.Repeat("x", i), Category: "test"})
	}
	return c
}

func TestUsedSetClearsWhenPoolDrains(t *testing.T) {
	const pool = 7
	bands := []Band{{Name: "only", From: 1, To: 1, Schemes: []cipher.Scheme{cipher.ROT13}, Tier: TierEasy}}
	src, err := NewSource(smallCorpus(pool), bands, WithRand(rand.New(rand.NewPCG(1, 1))))
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i := 0; i < pool-4; i++ {
		q, err := src.Next(1)
		if err != nil {
			t.Fatal(err)
		}
		if seen[q.Plaintext] {
			t.Fatalf("draw %d repeated %q before the pool drained", i, q.Plaintext)
		}
		seen[q.Plaintext] = true
	}
	if got := src.usedCount(); got != pool-4 {
		t.Fatalf("used = %d; want %d", got, pool-4)
	}

	if _, err := src.Next(1); err != nil {
		t.Fatal(err)
	}
	if got := src.usedCount(); got != 1 {
		t.Fatalf("used set not cleared after drain: %d entries", got)
	}
}

func TestNoRepeatAcrossClear(t *testing.T) {
	bands := []Band{{Name: "only", From: 1, To: 1, Schemes: []cipher.Scheme{cipher.ROT13}, Tier: TierEasy}}
	for seed := uint64(0); seed < 20; seed++ {
		src, err := NewSource(smallCorpus(minUnused), bands, WithRand(rand.New(rand.NewPCG(seed, 3))))
		if err != nil {
			t.Fatal(err)
		}
		prev := ""
		for i := 0; i < 50; i++ {
			q, err := src.Next(1)
			if err != nil {
				t.Fatal(err)
			}
			if q.Plaintext == prev {
				t.Fatalf("seed %d draw %d repeated %q back to back", seed, i, prev)
			}
			prev = q.Plaintext
		}
	}
}

func TestNewSourceValidatesBands(t *testing.T) {
	c := smallCorpus(10)
	c.Medium, c.Hard = c.Easy, c.Easy
	if _, err := NewSource(c, DefaultBands()); err != nil {
		t.Fatalf("default bands rejected: %v", err)
	}
	bands := DefaultBands()
	bands[2].From++
	if _, err := NewSource(c, bands); err == nil {
		t.Fatal("bands with a gap accepted")
	}
}

func TestSourceRejectsEmptyTier(t *testing.T) {
	if _, err := NewSource(Corpus{}, DefaultBands()); err == nil {
		t.Fatal("empty corpus accepted")
	}
}

func TestLoadCorpusRejectsEmptyText(t *testing.T) {
	_, err := LoadCorpus(strings.NewReader("[[easy]]\ntext = \"\"\ncategory = \"x\"\n"))
	if err == nil {
		t.Fatal("empty phrase accepted")
	}
}
