package questions

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
)

// Provider is what the round engine asks for a question. In a duel only
// the question authority holds one.
type Provider interface {
	Next(round int) (domain.Question, error)
}

// minUnused is the number of unused phrases below which the used set is
// cleared, so a draining pool never locks up.
const minUnused = 5

// Source draws phrases from a corpus without immediate repeats and encodes
// them with a scheme allowed for the round's band.
type Source struct {
	mu     sync.Mutex
	corpus Corpus
	bands  []Band
	rng    *rand.Rand
	used   map[string]struct{}
	// last is the previous draw, kept out of the pool right after a clear.
	last string
}

type Option func(*Source)

// WithRand makes draws reproducible.
func WithRand(r *rand.Rand) Option {
	return func(s *Source) { s.rng = r }
}

func NewSource(corpus Corpus, bands []Band, opts ...Option) (*Source, error) {
	if len(bands) == 0 {
		return nil, errors.New("questions: no bands")
	}
	if err := ValidateBands(bands, bands[len(bands)-1].To); err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	for _, b := range bands {
		if len(corpus.Pool(b.Tier)) == 0 {
			return nil, fmt.Errorf("questions: band %s uses empty tier %s", b.Name, b.Tier)
		}
	}
	s := &Source{
		corpus: corpus,
		bands:  bands,
		used:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s, nil
}

// NewDefaultSource uses the embedded corpus and the default bands.
func NewDefaultSource(opts ...Option) (*Source, error) {
	c, err := DefaultCorpus()
	if err != nil {
		return nil, err
	}
	return NewSource(c, DefaultBands(), opts...)
}

// Next returns a freshly encoded question for round.
func (s *Source) Next(round int) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	band := BandFor(s.bands, round)
	scheme := band.Schemes[s.rng.IntN(len(band.Schemes))]
	phrase := s.pick(s.corpus.Pool(band.Tier))

	res, err := cipher.EncodeWithKey(phrase.Text, scheme, cipher.RandomKey(s.rng))
	if err != nil {
		return domain.Question{}, fmt.Errorf("encode %q: %w", phrase.Text, err)
	}
	q := domain.Question{
		Plaintext: phrase.Text,
		Encoded:   res.Encoded,
		Scheme:    scheme,
		Key:       res.Key,
		Category:  phrase.Category,
	}
	if err := q.Verify(); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *Source) pick(pool []Phrase) Phrase {
	available := make([]Phrase, 0, len(pool))
	for _, p := range pool {
		if _, ok := s.used[p.Text]; !ok {
			available = append(available, p)
		}
	}
	if len(available) < minUnused {
		clear(s.used)
		available = available[:0]
		for _, p := range pool {
			if p.Text != s.last || len(pool) == 1 {
				available = append(available, p)
			}
		}
	}
	p := available[s.rng.IntN(len(available))]
	s.used[p.Text] = struct{}{}
	s.last = p.Text
	return p
}

func (s *Source) usedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}
