package progression

import "fmt"

// StageGroup marks a group-phase match of a group_knockout tournament.
const StageGroup = "group"

// Details is the stored shape of a match's bracket position. It is written by
// the bracket generator and turned into a MatchContext by ParseContext.
type Details struct {
	MatchIndex *int   `json:"matchIndex,omitempty"`
	Leg        int    `json:"leg,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	Stage      string `json:"stage,omitempty"`
}

// MatchContext is the validated bracket position of a match. The concrete
// types are LeagueContext, GroupStageContext, SingleLegContext and
// TwoLegContext.
type MatchContext interface {
	isMatchContext()
}

// LeagueContext is a standalone league fixture.
type LeagueContext struct{}

// GroupStageContext is a group-phase fixture of a group_knockout tournament.
type GroupStageContext struct{}

// SingleLegContext is a knockout tie decided in one match.
type SingleLegContext struct {
	MatchIndex int
}

// TwoLegContext is one leg of a home-and-away knockout tie. Both legs share
// MatchIndex and GroupID.
type TwoLegContext struct {
	MatchIndex int
	Leg        int
	GroupID    string
}

func (LeagueContext) isMatchContext()     {}
func (GroupStageContext) isMatchContext() {}
func (SingleLegContext) isMatchContext()  {}
func (TwoLegContext) isMatchContext()     {}

// ParseContext validates stored details against the tournament's format.
func ParseContext(t Tournament, d Details) (MatchContext, error) {
	switch t.Type {
	case League:
		return LeagueContext{}, nil
	case Knockout, GroupKnockout:
	default:
		return nil, fmt.Errorf("%w: unknown tournament type %q", ErrInvalidDetails, t.Type)
	}

	if t.Type == GroupKnockout && d.Stage == StageGroup {
		return GroupStageContext{}, nil
	}
	if d.Stage != "" && d.Stage != "knockout" {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidDetails, d.Stage)
	}
	if d.MatchIndex == nil {
		return nil, fmt.Errorf("%w: knockout match has no matchIndex", ErrInvalidDetails)
	}
	if *d.MatchIndex < 0 {
		return nil, fmt.Errorf("%w: negative matchIndex %d", ErrInvalidDetails, *d.MatchIndex)
	}

	switch t.Format {
	case Single:
		return SingleLegContext{MatchIndex: *d.MatchIndex}, nil
	case HomeAway:
		if d.Leg != 1 && d.Leg != 2 {
			return nil, fmt.Errorf("%w: leg must be 1 or 2, got %d", ErrInvalidDetails, d.Leg)
		}
		if d.GroupID == "" {
			return nil, fmt.Errorf("%w: two-leg match has no groupId", ErrInvalidDetails)
		}
		return TwoLegContext{MatchIndex: *d.MatchIndex, Leg: d.Leg, GroupID: d.GroupID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown match format %q", ErrInvalidDetails, t.Format)
	}
}

// DetailsFor builds the stored details of a knockout match at index.
// Leg is ignored for single-match ties.
func DetailsFor(t Tournament, round, index, leg int) Details {
	i := index
	d := Details{MatchIndex: &i}
	if t.Format == HomeAway {
		d.Leg = leg
		d.GroupID = TieGroupID(round, index)
	}
	return d
}

// TieGroupID is the groupId given to ties created by advancement.
func TieGroupID(round, index int) string {
	return fmt.Sprintf("r%d-m%d", round, index)
}

// TargetSlot maps a match index in round to the slot it feeds in the next
// round. Pairs (2k, 2k+1) feed match k; the lower index takes the home side.
func TargetSlot(round, matchIndex int) Slot {
	side := Home
	if matchIndex%2 == 1 {
		side = Away
	}
	return Slot{Round: round + 1, Index: matchIndex / 2, Side: side}
}
