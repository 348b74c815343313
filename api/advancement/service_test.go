package advancement

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"Tourney/api/models"
	"Tourney/api/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Tournament{}, &models.Participant{}, &models.Match{}))
	return db
}

func seedTournament(t *testing.T, db *gorm.DB, format progression.MatchFormat, rounds int) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:        "Cup",
		Type:        string(progression.Knockout),
		MatchFormat: string(format),
		TotalRounds: rounds,
	}
	tournament.Prepare()
	require.Empty(t, tournament.Validate())
	_, err := tournament.SaveTournament(db)
	require.NoError(t, err)
	return tournament
}

func seedParticipants(t *testing.T, db *gorm.DB, tournamentID uint, n int) []uint {
	t.Helper()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Participant{TournamentID: tournamentID, Name: fmt.Sprintf("Team %d", i+1)}
		p.Prepare()
		_, err := p.SaveParticipant(db)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func seedMatch(t *testing.T, db *gorm.DB, tournament *models.Tournament, round, index, leg int, home, away uint) *models.Match {
	t.Helper()
	m := &models.Match{
		TournamentID:      tournament.ID,
		Round:             round,
		HomeParticipantID: &home,
		AwayParticipantID: &away,
		Details:           progression.DetailsFor(tournament.Progression(), round, index, leg),
	}
	m.Prepare()
	require.Empty(t, m.Validate())
	_, err := m.SaveMatch(db)
	require.NoError(t, err)
	return m
}

func finalScore(home, away int) ResultInput {
	return ResultInput{
		Status:    strp(string(progression.StatusCompleted)),
		HomeScore: intp(home),
		AwayScore: intp(away),
	}
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.Match {
	t.Helper()
	m, err := (&models.Match{}).FindMatchByID(db, id)
	require.NoError(t, err)
	return m
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func TestRecordResult_SingleLegAdvancesWinner(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 3)
	ids := seedParticipants(t, db, tournament.ID, 4)
	m0 := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])
	m1 := seedMatch(t, db, tournament, 1, 1, 0, ids[2], ids[3])

	pub := &recordingPublisher{}
	svc := &Service{DB: db, Events: pub}

	res, err := svc.RecordResult(context.Background(), m0.ID, finalScore(2, 1))
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, progression.KindTieResolved, res.Outcome.Kind)
	require.NotNil(t, res.Applied)
	require.Len(t, res.Applied.CreatedMatchIDs, 1)

	semi := reload(t, db, res.Applied.CreatedMatchIDs[0])
	assert.Equal(t, 2, semi.Round)
	require.NotNil(t, semi.Details.MatchIndex)
	assert.Equal(t, 0, *semi.Details.MatchIndex)
	require.NotNil(t, semi.HomeParticipantID)
	assert.Equal(t, ids[0], *semi.HomeParticipantID)
	assert.Nil(t, semi.AwayParticipantID)

	res, err = svc.RecordResult(context.Background(), m1.ID, finalScore(0, 3))
	require.NoError(t, err)
	assert.Empty(t, res.Applied.CreatedMatchIDs)
	assert.Equal(t, []uint{semi.ID}, res.Applied.TargetMatchIDs)

	semi = reload(t, db, semi.ID)
	require.NotNil(t, semi.AwayParticipantID)
	assert.Equal(t, ids[3], *semi.AwayParticipantID)
	assert.Equal(t, []string{"progression.tie_resolved.v1", "progression.tie_resolved.v1"}, pub.topics)
}

func TestRecordResult_LiveScoreDoesNotResolve(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	res, err := svc.RecordResult(context.Background(), m.ID, ResultInput{
		Status:    strp(string(progression.StatusLive)),
		HomeScore: intp(1),
		AwayScore: intp(0),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, "live", reload(t, db, m.ID).Status)
}

func TestRecordResult_LevelScoreWithoutPenaltiesRollsBack(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	_, err := svc.RecordResult(context.Background(), m.ID, finalScore(1, 1))
	require.ErrorIs(t, err, progression.ErrMissingPenaltyScore)

	stored := reload(t, db, m.ID)
	assert.Equal(t, "scheduled", stored.Status)
	assert.Nil(t, stored.HomeScore)

	in := finalScore(1, 1)
	in.HomePenaltyScore = intp(3)
	in.AwayPenaltyScore = intp(4)
	res, err := svc.RecordResult(context.Background(), m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, progression.DecidedByPenalties, res.Outcome.Resolved.DecidedBy)
	assert.Equal(t, ids[1], res.Outcome.Resolved.WinnerParticipantID)
}

func TestRecordResult_InvalidInput(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	_, err := svc.RecordResult(context.Background(), m.ID, ResultInput{
		Status:    strp(string(progression.StatusCompleted)),
		HomeScore: intp(-1),
		AwayScore: intp(0),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Invalid_home_score")

	_, err = svc.RecordResult(context.Background(), 9999, finalScore(1, 0))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordResult_TwoLegTie(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.HomeAway, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	leg1 := seedMatch(t, db, tournament, 1, 1, 1, ids[0], ids[1])
	leg2 := seedMatch(t, db, tournament, 1, 1, 2, ids[1], ids[0])

	svc := &Service{DB: db}
	res, err := svc.RecordResult(context.Background(), leg1.ID, finalScore(3, 0))
	require.NoError(t, err)
	assert.Equal(t, progression.KindAwaitingSecondLeg, res.Outcome.Kind)
	assert.Nil(t, res.Applied)

	res, err = svc.RecordResult(context.Background(), leg2.ID, finalScore(1, 1))
	require.NoError(t, err)
	require.True(t, res.Outcome.IsResolved())
	r := res.Outcome.Resolved
	assert.Equal(t, ids[0], r.WinnerParticipantID)
	assert.Equal(t, progression.DecidedByAggregate, r.DecidedBy)
	assert.Equal(t, 4, r.WinnerGoals)
	assert.Equal(t, 1, r.LoserGoals)
	assert.Equal(t, progression.Slot{Round: 2, Index: 0, Side: progression.Away}, r.Target)

	require.Len(t, res.Applied.CreatedMatchIDs, 2)
	next, err := (&models.Match{}).FindSlotMatches(db, tournament.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, 1, next[0].Details.Leg)
	assert.Equal(t, "r2-m0", next[0].Details.GroupID)
	require.NotNil(t, next[0].AwayParticipantID)
	assert.Equal(t, ids[0], *next[0].AwayParticipantID)
	assert.Equal(t, 2, next[1].Details.Leg)
	require.NotNil(t, next[1].HomeParticipantID)
	assert.Equal(t, ids[0], *next[1].HomeParticipantID)
}

func TestRecordResult_CorrectedFirstLegRechecksTie(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.HomeAway, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	leg1 := seedMatch(t, db, tournament, 1, 0, 1, ids[0], ids[1])
	leg2 := seedMatch(t, db, tournament, 1, 0, 2, ids[1], ids[0])

	svc := &Service{DB: db}
	_, err := svc.RecordResult(context.Background(), leg1.ID, finalScore(2, 1))
	require.NoError(t, err)
	res, err := svc.RecordResult(context.Background(), leg2.ID, finalScore(0, 2))
	require.NoError(t, err)
	require.True(t, res.Outcome.IsResolved())
	assert.Equal(t, ids[0], res.Outcome.Resolved.WinnerParticipantID)
	targets := res.Applied.TargetMatchIDs

	// Same winner on aggregate: the tie is re-resolved and nothing moves.
	res, err = svc.RecordResult(context.Background(), leg1.ID, finalScore(3, 1))
	require.NoError(t, err)
	require.True(t, res.Outcome.IsResolved())
	assert.Equal(t, ids[0], res.Outcome.Resolved.WinnerParticipantID)
	assert.Equal(t, 5, res.Outcome.Resolved.WinnerGoals)
	assert.False(t, res.Applied.Changed)
	assert.Equal(t, targets, res.Applied.TargetMatchIDs)

	// Flipped winner on aggregate conflicts with the advanced participant.
	_, err = svc.RecordResult(context.Background(), leg1.ID, finalScore(0, 3))
	require.ErrorIs(t, err, ErrSlotConflict)

	stored := reload(t, db, leg1.ID)
	assert.Equal(t, 3, *stored.HomeScore)
	assert.Equal(t, 1, *stored.AwayScore)

	insp, err := svc.Inspect(context.Background(), leg2.ID)
	require.NoError(t, err)
	require.NotNil(t, insp.Finding)
	assert.Equal(t, FindingOK, insp.Finding.Status)
}

func TestRecordResult_FinalCrownsChampion(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 1)
	ids := seedParticipants(t, db, tournament.ID, 2)
	final := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	pub := &recordingPublisher{}
	svc := &Service{DB: db, Events: pub}
	res, err := svc.RecordResult(context.Background(), final.ID, finalScore(0, 2))
	require.NoError(t, err)
	assert.Equal(t, ids[1], res.Applied.ChampionID)
	assert.Empty(t, res.Applied.TargetMatchIDs)

	stored, err := (&models.Tournament{}).FindTournamentByID(db, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusCompleted, stored.Status)
	require.NotNil(t, stored.ChampionParticipantID)
	assert.Equal(t, ids[1], *stored.ChampionParticipantID)
	assert.Contains(t, pub.topics, "progression.tournament_completed.v1")
}

func TestRecordResult_ReapplyIsIdempotent(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	first, err := svc.RecordResult(context.Background(), m.ID, finalScore(2, 0))
	require.NoError(t, err)
	assert.True(t, first.Applied.Changed)

	second, err := svc.RecordResult(context.Background(), m.ID, finalScore(2, 0))
	require.NoError(t, err)
	assert.False(t, second.Applied.Changed)
	assert.Empty(t, second.Applied.CreatedMatchIDs)
	assert.Equal(t, first.Applied.TargetMatchIDs, second.Applied.TargetMatchIDs)

	all, err := (&models.Match{}).FindTournamentMatches(db, tournament.ID, 2)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordResult_CorrectedScoreConflicts(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	_, err := svc.RecordResult(context.Background(), m.ID, finalScore(2, 0))
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), m.ID, finalScore(0, 2))
	require.ErrorIs(t, err, ErrSlotConflict)

	stored := reload(t, db, m.ID)
	assert.Equal(t, 2, *stored.HomeScore)
}

func TestRecordResult_ConcurrentSiblingsShareTarget(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 3)
	ids := seedParticipants(t, db, tournament.ID, 4)
	m0 := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])
	m1 := seedMatch(t, db, tournament, 1, 1, 0, ids[2], ids[3])

	svc := &Service{DB: db}
	var wg sync.WaitGroup
	for _, id := range []uint{m0.ID, m1.ID} {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := svc.RecordResult(context.Background(), id, finalScore(1, 0))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	next, err := (&models.Match{}).FindTournamentMatches(db, tournament.ID, 2)
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.NotNil(t, next[0].HomeParticipantID)
	require.NotNil(t, next[0].AwayParticipantID)
	assert.Equal(t, ids[0], *next[0].HomeParticipantID)
	assert.Equal(t, ids[2], *next[0].AwayParticipantID)
}

func TestInspect(t *testing.T) {
	db := setupDB(t)
	tournament := seedTournament(t, db, progression.Single, 2)
	ids := seedParticipants(t, db, tournament.ID, 2)
	m := seedMatch(t, db, tournament, 1, 0, 0, ids[0], ids[1])

	svc := &Service{DB: db}
	_, err := svc.Inspect(context.Background(), m.ID)
	assert.ErrorIs(t, err, progression.ErrInvalidState)

	require.NoError(t, db.Model(&models.Match{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"status": "completed", "home_score": 3, "away_score": 1,
	}).Error)

	insp, err := svc.Inspect(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, insp.Finding)
	assert.Equal(t, FindingPending, insp.Finding.Status)

	next, err := (&models.Match{}).FindTournamentMatches(db, tournament.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, next)
}
