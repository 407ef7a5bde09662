// Package duel keeps two peers' rounds in step over a shared match record
// and a best-effort answer broadcast.
//
// player1 is the question authority: it alone generates questions and
// advances rounds. Each peer writes only the opponent's HP, and either may
// write the terminal fields, always with the same values. Record changes
// are deduplicated by question identity and round number, and HP only ever
// goes down, so duplicated and reordered notifications are harmless.
package duel

import (
	"fmt"
	"strconv"
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/round"
)

type Rules struct {
	Round round.Rules
	// StartDelay is how long the authority waits before the first question.
	StartDelay time.Duration
}

func DefaultRules() Rules {
	return Rules{Round: round.DuelRules(), StartDelay: 1500 * time.Millisecond}
}

func (r Rules) Validate() error {
	if err := r.Round.Validate(); err != nil {
		return err
	}
	if r.StartDelay < 0 {
		return fmt.Errorf("start delay must not be negative")
	}
	return nil
}

// MatchState is one peer's view of a match.
type MatchState struct {
	Rules Rules
	// Local is this peer's round state under duel rules.
	Local round.State

	MatchID      string
	Self         string
	Opponent     string
	OpponentName string
	Authority    bool
	OpponentHP   int

	// QuestionRound and Identity describe the last accepted question.
	// Identity is keyed by round, so a repeated phrase in a later round
	// still starts that round.
	QuestionRound int
	Identity      string
	// Answered latches once the current round has a correct answer from
	// either side.
	Answered bool
	Begun    bool
	// Early holds correct opponent broadcasts for rounds whose record has
	// not arrived yet, at most one per round.
	Early []Answer
	// Unseen counts rounds conceded on a broadcast whose damage has not
	// shown up in the record yet.
	Unseen int

	// Epoch guards the start and advance timers.
	Epoch uint64
}

// New builds the state for self in m. HP starts at the lower of the rules'
// starting HP and the recorded value.
func New(rules Rules, m domain.Match, self, opponentName string) MatchState {
	local := round.New(rules.Round)
	opp := m.OpponentOf(self)
	local.HP = min(local.HP, m.HPOf(self))
	if opponentName == "" {
		opponentName = "Opponent"
	}
	return MatchState{
		Rules:        rules,
		Local:        local,
		MatchID:      m.ID,
		Self:         self,
		Opponent:     opp,
		OpponentName: opponentName,
		Authority:    m.IsPlayer1(self),
		OpponentHP:   min(rules.Round.StartingHP, m.HPOf(opp)),
	}
}

func (s MatchState) Ended() bool { return s.Local.Ended() }

// outcomeFor maps a recorded winner to this peer's outcome.
func (s MatchState) outcomeFor(winnerID string) round.Outcome {
	switch winnerID {
	case s.Self:
		return round.OutcomeWon
	case "":
		return round.OutcomeDraw
	}
	return round.OutcomeLost
}

// leader returns the player with more HP, or "" when level.
func (s MatchState) leader() string {
	switch {
	case s.Local.HP > s.OpponentHP:
		return s.Self
	case s.OpponentHP > s.Local.HP:
		return s.Opponent
	}
	return ""
}

// roundIdentity is the key the deduplication gate stores for round r.
func roundIdentity(r int, q domain.Question) string {
	return strconv.Itoa(r) + "#" + q.Identity()
}

// hold keeps a for replay once its round starts, replacing any earlier
// broadcast for the same round. The slice is copied so states stay values.
func (s MatchState) hold(a Answer) MatchState {
	held := make([]Answer, 0, len(s.Early)+1)
	for _, h := range s.Early {
		if h.Round != a.Round {
			held = append(held, h)
		}
	}
	s.Early = append(held, a)
	return s
}

// takeEarly removes the held broadcast for round r, dropping any for
// rounds at or before r.
func (s MatchState) takeEarly(r int) (MatchState, Answer, bool) {
	var (
		hit   Answer
		found bool
	)
	var kept []Answer
	for _, h := range s.Early {
		switch {
		case h.Round == r:
			hit, found = h, true
		case h.Round > r:
			kept = append(kept, h)
		}
	}
	s.Early = kept
	return s, hit, found
}

// Answer is the broadcast a peer sends for every graded submission.
type Answer struct {
	PlayerID string `json:"playerId"`
	Round    int    `json:"round"`
	Text     string `json:"answer"`
	Correct  bool   `json:"correct"`
	TimeMS   int64  `json:"time"`
}

func (a Answer) Elapsed() time.Duration {
	return time.Duration(a.TimeMS) * time.Millisecond
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Started begins the match once both channels are subscribed.
type Started struct{}

// RecordChanged carries a match record as observed from the store.
type RecordChanged struct {
	Match domain.Match
	At    time.Time
}

// AnswerReceived carries a broadcast from the match channel, possibly one
// of our own echoed back.
type AnswerReceived struct {
	Answer Answer
	At     time.Time
}

type Submit struct {
	Text string
	At   time.Time
}

type StartElapsed struct{ Epoch uint64 }

type AdvanceElapsed struct{ Epoch uint64 }

// CooldownElapsed is forwarded to the local round state.
type CooldownElapsed struct{ Epoch uint64 }

// Quit forfeits the match.
type Quit struct{}

func (Started) isEvent()         {}
func (RecordChanged) isEvent()   {}
func (AnswerReceived) isEvent()  {}
func (Submit) isEvent()          {}
func (StartElapsed) isEvent()    {}
func (AdvanceElapsed) isEvent()  {}
func (CooldownElapsed) isEvent() {}
func (Quit) isEvent()            {}

// Effect is work Reduce asks the peer controller to perform.
type Effect interface{ isEffect() }

// PublishQuestion asks the authority to generate the question for Round
// and write it to the record.
type PublishQuestion struct{ Round int }

type BroadcastAnswer struct{ Answer Answer }

// WriteDamage sets PlayerID's recorded HP.
type WriteDamage struct {
	PlayerID string
	HP       int
}

// WriteFinish writes the terminal fields. WinnerID is empty for a draw.
type WriteFinish struct{ WinnerID string }

// Schedule asks for a timer. Start and advance timers carry the match
// epoch, cooldown timers the local round epoch.
type Schedule struct {
	Timer round.TimerKind
	Delay time.Duration
	Epoch uint64
}

type CancelTimers struct{}

type StartClock struct{ At time.Time }

type StopClock struct{}

type Notify struct{ Notification round.Notification }

func (PublishQuestion) isEffect() {}
func (BroadcastAnswer) isEffect() {}
func (WriteDamage) isEffect()     {}
func (WriteFinish) isEffect()     {}
func (Schedule) isEffect()        {}
func (CancelTimers) isEffect()    {}
func (StartClock) isEffect()      {}
func (StopClock) isEffect()       {}
func (Notify) isEffect()          {}
