package questions

import (
	"errors"
	"fmt"

	"cypher_arena/internal/cipher"
)

// Band maps a contiguous round range to the schemes and phrase tier used
// for those rounds.
type Band struct {
	Name    string
	From    int
	To      int
	Schemes []cipher.Scheme
	Tier    Tier
}

func (b Band) Contains(round int) bool {
	return round >= b.From && round <= b.To
}

// DefaultBands partitions rounds 1-15.
func DefaultBands() []Band {
	return []Band{
		{Name: "easy", From: 1, To: 3, Schemes: []cipher.Scheme{cipher.ROT13}, Tier: TierEasy},
		{Name: "medium_low", From: 4, To: 6, Schemes: []cipher.Scheme{cipher.ROT13, cipher.Hex}, Tier: TierEasy},
		{Name: "medium", From: 7, To: 9, Schemes: []cipher.Scheme{cipher.ROT13, cipher.Hex, cipher.Base64, cipher.URL}, Tier: TierMedium},
		{Name: "medium_high", From: 10, To: 12, Schemes: cipher.AllSchemes(), Tier: TierMedium},
		{Name: "hard", From: 13, To: 15, Schemes: cipher.AllSchemes(), Tier: TierHard},
	}
}

// ValidateBands checks that bands are ordered, non-empty, and partition
// [1, total] without gaps or overlaps.
func ValidateBands(bands []Band, total int) error {
	if len(bands) == 0 {
		return errors.New("no difficulty bands")
	}
	next := 1
	for i, b := range bands {
		if b.From != next {
			return fmt.Errorf("band %d (%s) starts at round %d; want %d", i, b.Name, b.From, next)
		}
		if b.To < b.From {
			return fmt.Errorf("band %d (%s) ends before it starts", i, b.Name)
		}
		if len(b.Schemes) == 0 {
			return fmt.Errorf("band %d (%s) has no schemes", i, b.Name)
		}
		for _, sc := range b.Schemes {
			if !sc.Valid() {
				return fmt.Errorf("band %d (%s): unknown scheme %q", i, b.Name, sc)
			}
		}
		next = b.To + 1
	}
	if next-1 != total {
		return fmt.Errorf("bands cover rounds 1-%d; want 1-%d", next-1, total)
	}
	return nil
}

// BandFor returns the band for round. Rounds past the last band use the
// last band and rounds below 1 use the first.
func BandFor(bands []Band, round int) Band {
	for _, b := range bands {
		if b.Contains(round) {
			return b
		}
	}
	if round < bands[0].From {
		return bands[0]
	}
	return bands[len(bands)-1]
}
