package progression

// TournamentType is the competition structure a match belongs to.
type TournamentType string

const (
	League        TournamentType = "league"
	Knockout      TournamentType = "knockout"
	GroupKnockout TournamentType = "group_knockout"
)

// MatchFormat says whether a knockout tie is one match or two legs.
type MatchFormat string

const (
	Single   MatchFormat = "single"
	HomeAway MatchFormat = "home_away"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
)

type Side string

const (
	Home Side = "home"
	Away Side = "away"
)

// Opposite returns the other side of a fixture.
func (s Side) Opposite() Side {
	if s == Home {
		return Away
	}
	return Home
}

// Tournament carries the fields the resolver reads from a tournament record.
type Tournament struct {
	ID     uint
	Type   TournamentType
	Format MatchFormat
}

// IsKnockoutType reports whether matches of this type can advance a winner.
func (t Tournament) IsKnockoutType() bool {
	return t.Type == Knockout || t.Type == GroupKnockout
}

// Match is a read-only view of a match record. Participant ids are zero while
// a slot is still unfilled; scores are nil until play starts.
type Match struct {
	ID                uint
	TournamentID      uint
	Round             int
	Status            Status
	HomeParticipantID uint
	AwayParticipantID uint
	HomeScore         *int
	AwayScore         *int
	HomePenaltyScore  *int
	AwayPenaltyScore  *int
	Context           MatchContext
}

// Scored reports whether the match is progression-eligible.
func (m Match) Scored() bool {
	return m.Status == StatusCompleted && m.HomeScore != nil && m.AwayScore != nil
}

// Kind tags the variant held by an Outcome.
type Kind string

const (
	KindNoOp              Kind = "no_op"
	KindAwaitingSecondLeg Kind = "awaiting_second_leg"
	KindTieResolved       Kind = "tie_resolved"
)

// Decider records what settled a tie.
type Decider string

const (
	DecidedByScore     Decider = "score"
	DecidedByAggregate Decider = "aggregate"
	DecidedByPenalties Decider = "penalties"
)

// Slot is a position in a future match that a tie winner will occupy.
type Slot struct {
	Round int  `json:"round"`
	Index int  `json:"index"`
	Side  Side `json:"side"`
}

// Resolution is the payload of a TieResolved outcome.
type Resolution struct {
	WinnerParticipantID uint    `json:"winner_participant_id"`
	LoserParticipantID  uint    `json:"loser_participant_id"`
	Target              Slot    `json:"target"`
	DecidedBy           Decider `json:"decided_by"`
	WinnerGoals         int     `json:"winner_goals"`
	LoserGoals          int     `json:"loser_goals"`
}

// Outcome is the result of resolving a completed match. Resolved is set only
// when Kind is KindTieResolved.
type Outcome struct {
	Kind     Kind        `json:"kind"`
	MatchID  uint        `json:"match_id"`
	Resolved *Resolution `json:"resolved,omitempty"`
}

func (o Outcome) IsResolved() bool {
	return o.Kind == KindTieResolved && o.Resolved != nil
}
