package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContext(t *testing.T) {
	tests := []struct {
		name    string
		t       Tournament
		d       Details
		want    MatchContext
		wantErr bool
	}{
		{"league ignores details", leagueCup, Details{Leg: 9}, LeagueContext{}, false},
		{"group stage", groupsAndKO, Details{Stage: StageGroup}, GroupStageContext{}, false},
		{"group stage only in group_knockout", singleCup, Details{Stage: StageGroup}, nil, true},
		{"single leg", singleCup, Details{MatchIndex: intp(4)}, SingleLegContext{MatchIndex: 4}, false},
		{"explicit knockout stage", groupsAndKO, Details{MatchIndex: intp(1), Stage: "knockout"}, SingleLegContext{MatchIndex: 1}, false},
		{"missing index", singleCup, Details{}, nil, true},
		{"negative index", singleCup, Details{MatchIndex: intp(-1)}, nil, true},
		{"two leg", twoLegCup, Details{MatchIndex: intp(0), Leg: 2, GroupID: "G"}, TwoLegContext{MatchIndex: 0, Leg: 2, GroupID: "G"}, false},
		{"two leg bad leg", twoLegCup, Details{MatchIndex: intp(0), Leg: 3, GroupID: "G"}, nil, true},
		{"two leg no group", twoLegCup, Details{MatchIndex: intp(0), Leg: 1}, nil, true},
		{"unknown type", Tournament{Type: "swiss", Format: Single}, Details{MatchIndex: intp(0)}, nil, true},
		{"unknown format", Tournament{Type: Knockout, Format: "best_of_three"}, Details{MatchIndex: intp(0)}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContext(tt.t, tt.d)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDetails)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetSlot(t *testing.T) {
	assert.Equal(t, Slot{Round: 2, Index: 0, Side: Home}, TargetSlot(1, 0))
	assert.Equal(t, Slot{Round: 2, Index: 0, Side: Away}, TargetSlot(1, 1))
	assert.Equal(t, Slot{Round: 5, Index: 3, Side: Away}, TargetSlot(4, 7))
}

func TestDetailsFor(t *testing.T) {
	d := DetailsFor(twoLegCup, 2, 1, 2)
	ctx, err := ParseContext(twoLegCup, d)
	require.NoError(t, err)
	assert.Equal(t, TwoLegContext{MatchIndex: 1, Leg: 2, GroupID: "r2-m1"}, ctx)

	d = DetailsFor(singleCup, 2, 1, 2)
	assert.Zero(t, d.Leg)
	assert.Empty(t, d.GroupID)
}
