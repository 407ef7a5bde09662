package domain

import "time"

// GameMode distinguishes solo practice from a head-to-head duel.
type GameMode string

const (
	ModePractice GameMode = "practice"
	ModeDuel     GameMode = "duel"
)

// MatchStatus of the shared duel record.
type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchFinished MatchStatus = "finished"
)

// Match is the durable record both duel peers reconcile against. Each peer
// writes only the fields it owns: question and round belong to player1,
// a player's HP is written by the opponent who dealt the damage, and the
// terminal fields may be written by either with identical values.
type Match struct {
	ID              string      `db:"id" json:"id"`
	RoomID          string      `db:"room_id" json:"room_id"`
	Player1ID       string      `db:"player1_id" json:"player1_id"`
	Player2ID       string      `db:"player2_id" json:"player2_id"`
	Player1HP       int         `db:"player1_hp" json:"player1_hp"`
	Player2HP       int         `db:"player2_hp" json:"player2_hp"`
	CurrentQuestion *Question   `db:"current_question" json:"current_question"`
	CurrentRound    int         `db:"current_round" json:"current_round"`
	Status          MatchStatus `db:"status" json:"status"`
	WinnerID        string      `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

func (m Match) Involves(playerID string) bool {
	return playerID != "" && (m.Player1ID == playerID || m.Player2ID == playerID)
}

func (m Match) IsPlayer1(playerID string) bool {
	return m.Player1ID == playerID
}

// OpponentOf returns the other participant's id.
func (m Match) OpponentOf(playerID string) string {
	if m.Player1ID == playerID {
		return m.Player2ID
	}
	return m.Player1ID
}

// HPOf returns the recorded HP of the given participant.
func (m Match) HPOf(playerID string) int {
	if m.Player1ID == playerID {
		return m.Player1HP
	}
	return m.Player2HP
}

func (m Match) Finished() bool {
	return m.Status == MatchFinished
}

// MatchPatch lists the fields of an update. Nil fields are left untouched.
type MatchPatch struct {
	Player1HP       *int
	Player2HP       *int
	CurrentQuestion *Question
	CurrentRound    *int
	Status          *MatchStatus
	WinnerID        *string
}

func (p MatchPatch) Empty() bool {
	return p.Player1HP == nil && p.Player2HP == nil && p.CurrentQuestion == nil &&
		p.CurrentRound == nil && p.Status == nil && p.WinnerID == nil
}

// Apply returns m with the patch fields written over it.
func (p MatchPatch) Apply(m Match) Match {
	if p.Player1HP != nil {
		m.Player1HP = *p.Player1HP
	}
	if p.Player2HP != nil {
		m.Player2HP = *p.Player2HP
	}
	if p.CurrentQuestion != nil {
		q := *p.CurrentQuestion
		m.CurrentQuestion = &q
	}
	if p.CurrentRound != nil {
		m.CurrentRound = *p.CurrentRound
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.WinnerID != nil {
		m.WinnerID = *p.WinnerID
	}
	return m
}

// HPPatch sets the HP field that belongs to playerID.
func HPPatch(m Match, playerID string, hp int) MatchPatch {
	if m.Player1ID == playerID {
		return MatchPatch{Player1HP: &hp}
	}
	return MatchPatch{Player2HP: &hp}
}

// FinishPatch writes the terminal fields. winnerID is empty for a draw.
func FinishPatch(winnerID string) MatchPatch {
	st := MatchFinished
	return MatchPatch{Status: &st, WinnerID: &winnerID}
}

// QuestionPatch publishes the question for a round.
func QuestionPatch(q Question, round int) MatchPatch {
	return MatchPatch{CurrentQuestion: &q, CurrentRound: &round}
}
