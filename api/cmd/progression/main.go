// Command progression inspects and audits knockout advancement from the
// command line, against the same database the API uses.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"Tourney/api/advancement"
	"Tourney/api/config"
	"Tourney/api/controllers"
	"Tourney/api/models"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cliApp := &cli.App{
		Name:  "progression",
		Usage: "inspect and audit knockout progression",
		Commands: []*cli.Command{
			newInspectCommand(cfg),
			newAuditCommand(cfg),
			newMigrateCommand(cfg),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return controllers.OpenDatabase(cfg)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInspectCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "resolve one match without writing and show where its winner belongs",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "match", Usage: "match id", Required: true},
		},
		Action: func(c *cli.Context) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			svc := &advancement.Service{DB: db, Logger: controllers.NewLogger(cfg)}

			inspection, err := svc.Inspect(c.Context, c.Uint("match"))
			if inspection != nil {
				if perr := printJSON(inspection); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func newAuditCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "compare resolved ties with the stored bracket",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "tournament", Usage: "tournament id; all active tournaments when omitted"},
		},
		Action: func(c *cli.Context) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			var report advancement.Report
			if id := c.Uint("tournament"); id != 0 {
				tournament, err := (&models.Tournament{}).FindTournamentByID(db.WithContext(c.Context), id)
				if err != nil {
					return fmt.Errorf("tournament %d: %w", id, err)
				}
				findings, err := advancement.AuditTournament(db.WithContext(c.Context), tournament)
				if err != nil {
					return err
				}
				report = advancement.Report{Tournaments: 1, Findings: findings}
			} else {
				report, err = advancement.Audit(c.Context, db, controllers.NewLogger(cfg), nil)
				if err != nil {
					return err
				}
			}

			if err := printJSON(report); err != nil {
				return err
			}
			if n := report.Count(advancement.FindingMismatch) + report.Count(advancement.FindingError); n > 0 {
				return cli.Exit(fmt.Sprintf("%d finding(s) need attention", n), 2)
			}
			return nil
		},
	}
}

func newMigrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the tournament tables",
		Action: func(c *cli.Context) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := controllers.Migrate(db); err != nil {
				return err
			}
			fmt.Println("Migrated tournaments, participants and matches")
			return nil
		},
	}
}
