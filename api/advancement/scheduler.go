package advancement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Tourney/api/metrics"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartAuditJob runs Audit on a cron schedule. It returns nil when spec is
// empty or "off". The caller stops the returned cron on shutdown.
func StartAuditJob(spec string, timeout time.Duration, db *gorm.DB, logger *slog.Logger, m *metrics.Progression) (*cron.Cron, error) {
	if spec == "" || spec == "off" {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := Audit(ctx, db, logger, m)
		if err != nil {
			logger.Error("progression audit failed", slog.Any("error", err))
			return
		}
		logger.Info("progression audit finished",
			slog.Int("tournaments", report.Tournaments),
			slog.Int("ok", report.Count(FindingOK)),
			slog.Int("pending", report.Count(FindingPending)),
			slog.Int("mismatch", report.Count(FindingMismatch)),
			slog.Int("error", report.Count(FindingError)),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}
