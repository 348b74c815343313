package advancement

import (
	"context"
	"fmt"
	"log/slog"

	"Tourney/api/metrics"
	"Tourney/api/models"
	"Tourney/api/progression"
	"Tourney/api/reporting"

	"gorm.io/gorm"
)

type FindingStatus string

const (
	FindingOK       FindingStatus = "ok"
	FindingPending  FindingStatus = "pending"
	FindingMismatch FindingStatus = "mismatch"
	FindingError    FindingStatus = "error"
)

// Finding compares a resolved tie with what the bracket actually holds.
type Finding struct {
	TournamentID uint                 `json:"tournament_id"`
	MatchID      uint                 `json:"match_id"`
	Status       FindingStatus        `json:"status"`
	Outcome      *progression.Outcome `json:"outcome,omitempty"`
	Detail       string               `json:"detail,omitempty"`
}

type Report struct {
	Tournaments int       `json:"tournaments"`
	Findings    []Finding `json:"findings"`
}

func (r Report) Count(status FindingStatus) int {
	n := 0
	for _, f := range r.Findings {
		if f.Status == status {
			n++
		}
	}
	return n
}

// AuditTournament re-resolves every completed knockout match of t and checks
// the downstream slot. It never writes.
func AuditTournament(db *gorm.DB, t *models.Tournament) ([]Finding, error) {
	pt := t.Progression()
	if !pt.IsKnockoutType() {
		return nil, nil
	}

	rows, err := (&models.Match{}).FindTournamentMatches(db, t.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("load matches for tournament %d: %w", t.ID, err)
	}

	byRound := make(map[int][]progression.Match)
	parsed := make(map[uint]progression.Match, len(rows))
	parseErrs := make(map[uint]error)
	for i := range rows {
		pm, err := rows[i].Progression(pt)
		if err != nil {
			parseErrs[rows[i].ID] = err
			continue
		}
		parsed[rows[i].ID] = pm
		byRound[pm.Round] = append(byRound[pm.Round], pm)
	}

	var findings []Finding
	for i := range rows {
		row := &rows[i]
		if row.Status != string(progression.StatusCompleted) {
			continue
		}
		if err, bad := parseErrs[row.ID]; bad {
			findings = append(findings, Finding{TournamentID: t.ID, MatchID: row.ID, Status: FindingError, Detail: err.Error()})
			continue
		}

		outcome, err := progression.Resolve(parsed[row.ID], pt, byRound[row.Round])
		if err != nil {
			findings = append(findings, Finding{TournamentID: t.ID, MatchID: row.ID, Status: FindingError, Detail: err.Error()})
			continue
		}
		if !outcome.IsResolved() {
			continue
		}
		findings = append(findings, checkTarget(t, rows, outcome))
	}
	return findings, nil
}

// checkTarget classifies where a resolved winner should sit against rows,
// which must include the target round.
func checkTarget(t *models.Tournament, rows []models.Match, outcome progression.Outcome) Finding {
	r := outcome.Resolved
	f := Finding{TournamentID: t.ID, MatchID: outcome.MatchID, Status: FindingOK, Outcome: &outcome}

	if t.TotalRounds > 0 && r.Target.Round > t.TotalRounds {
		switch {
		case t.ChampionParticipantID == nil:
			f.Status, f.Detail = FindingPending, "champion not recorded"
		case *t.ChampionParticipantID != r.WinnerParticipantID:
			f.Status = FindingMismatch
			f.Detail = fmt.Sprintf("champion is %d, final winner is %d", *t.ChampionParticipantID, r.WinnerParticipantID)
		}
		return f
	}

	for _, ls := range targetLegs(progression.MatchFormat(t.MatchFormat), r.Target.Side) {
		var target *models.Match
		for i := range rows {
			m := &rows[i]
			if m.Round == r.Target.Round && m.Details.MatchIndex != nil && *m.Details.MatchIndex == r.Target.Index &&
				(ls.leg == 0 || m.Details.Leg == ls.leg) {
				target = m
				break
			}
		}

		var current *uint
		if target != nil {
			current = target.ParticipantOn(ls.side)
		}
		switch {
		case current == nil:
			if f.Status == FindingOK {
				f.Status = FindingPending
				f.Detail = fmt.Sprintf("round %d slot %d %s is empty", r.Target.Round, r.Target.Index, ls.side)
			}
		case *current != r.WinnerParticipantID:
			f.Status = FindingMismatch
			f.Detail = fmt.Sprintf("match %d %s side holds %d, winner is %d", target.ID, ls.side, *current, r.WinnerParticipantID)
			return f
		}
	}
	return f
}

// Audit checks every active tournament. Integrity errors are reported to
// Sentry; ctx is checked between tournaments.
func Audit(ctx context.Context, db *gorm.DB, logger *slog.Logger, m *metrics.Progression) (Report, error) {
	var report Report
	tournaments, err := (&models.Tournament{}).FindActiveTournaments(db.WithContext(ctx))
	if err != nil {
		return report, fmt.Errorf("load active tournaments: %w", err)
	}

	for i := range tournaments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		t := &tournaments[i]
		findings, err := AuditTournament(db.WithContext(ctx), t)
		if err != nil {
			return report, err
		}
		report.Tournaments++

		for _, f := range findings {
			m.ObserveAudit(string(f.Status))
			switch f.Status {
			case FindingMismatch, FindingError:
				logger.Warn("progression audit finding",
					slog.Uint64("tournament_id", uint64(f.TournamentID)),
					slog.Uint64("match_id", uint64(f.MatchID)),
					slog.String("status", string(f.Status)),
					slog.String("detail", f.Detail),
				)
				if f.Status == FindingMismatch {
					reporting.Capture(ctx, fmt.Errorf("progression audit: %s", f.Detail), map[string]string{
						"tournament_id": fmt.Sprint(f.TournamentID),
						"match_id":      fmt.Sprint(f.MatchID),
					})
				}
			}
		}
		report.Findings = append(report.Findings, findings...)
	}
	return report, nil
}
