// Package questions supplies encoded challenges for each round.
package questions

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/BurntSushi/toml"
)

// Tier is a difficulty pool of the corpus.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Phrase is one corpus entry.
type Phrase struct {
	Text     string `toml:"text"`
	Category string `toml:"category"`
}

// Corpus is the read-only phrase table grouped by tier.
type Corpus struct {
	Easy   []Phrase `toml:"easy"`
	Medium []Phrase `toml:"medium"`
	Hard   []Phrase `toml:"hard"`
}

func (c Corpus) Pool(t Tier) []Phrase {
	switch t {
	case TierEasy:
		return c.Easy
	case TierMedium:
		return c.Medium
	case TierHard:
		return c.Hard
	}
	return nil
}

// Size is the total number of phrases across tiers.
func (c Corpus) Size() int {
	return len(c.Easy) + len(c.Medium) + len(c.Hard)
}

//go:embed corpus.toml
var embeddedCorpus []byte

// LoadCorpus decodes a TOML corpus and rejects empty phrases.
func LoadCorpus(r io.Reader) (Corpus, error) {
	var c Corpus
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return Corpus{}, fmt.Errorf("decode corpus: %w", err)
	}
	for _, t := range []Tier{TierEasy, TierMedium, TierHard} {
		for i, p := range c.Pool(t) {
			if p.Text == "" {
				return Corpus{}, fmt.Errorf("corpus %s[%d]: empty text", t, i)
			}
		}
	}
	return c, nil
}

var defaultCorpus = sync.OnceValues(func() (Corpus, error) {
	return LoadCorpus(bytes.NewReader(embeddedCorpus))
})

// DefaultCorpus returns the embedded malware-analysis phrase table.
func DefaultCorpus() (Corpus, error) {
	return defaultCorpus()
}
