// Command watchctl is the Court Watch operations CLI.
//
// Usage:
//
//	watchctl scrape
//	watchctl watches list
//	watchctl watches add --location <id> --court "Court 1" --date 2026-09-05 --from 18:00 --to 20:00 --contact me@example.com
//	watchctl watches toggle --id 3
//	watchctl watches delete --id 3
//	watchctl alerts --limit 20
//	watchctl status
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/config"
	"github.com/courtwatch/courtwatch-data/internal/db"
	"github.com/courtwatch/courtwatch-data/internal/notify"
	"github.com/courtwatch/courtwatch-data/internal/rec"
	"github.com/courtwatch/courtwatch-data/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "watchctl",
		Short: "Court Watch operations CLI",
	}

	root.AddCommand(scrapeCmd())
	root.AddCommand(watchesCmd())
	root.AddCommand(alertsCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// scrape command
// --------------------------------------------------------------------------

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run a single scrape pass (fetch, diff, match, alert)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				mailer := notify.NewMailer(cfg.SMTPEnabled, notify.Config{
					Host:        cfg.SMTPHost,
					Port:        cfg.SMTPPort,
					Username:    cfg.SMTPUsername,
					Password:    cfg.SMTPPassword,
					FromAddress: cfg.SMTPFromAddress,
					UseTLS:      cfg.SMTPUseTLS,
				}, logger)
				client := rec.NewClient(cfg.RecBaseURL, cfg.OrganizationSlug, cfg.HTTPTimeout, logger)
				pipeline := availability.NewPipeline(client, st, mailer, cfg.SportID, cfg.Timezone, logger)

				start := time.Now()
				if err := pipeline.Run(ctx); err != nil {
					return err
				}
				logger.Info("Scrape finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// watches command
// --------------------------------------------------------------------------

func watchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watches",
		Short: "Manage watch rules",
	}
	cmd.AddCommand(watchesListCmd())
	cmd.AddCommand(watchesAddCmd())
	cmd.AddCommand(watchesToggleCmd())
	cmd.AddCommand(watchesDeleteCmd())
	return cmd
}

func watchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all watches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				watches, err := st.Watches(ctx)
				if err != nil {
					return err
				}
				if len(watches) == 0 {
					fmt.Println("no watches")
					return nil
				}
				for _, w := range watches {
					state := "active"
					if !w.Active {
						state = "paused"
					}
					fmt.Printf("#%d\t%s\t%s\tcourt=%q date=%s from=%s to=%s triggers=%d\n",
						w.ID, state, w.LocationName,
						w.CourtQuery, orDash(w.TargetDate), orDash(w.TimeFrom), orDash(w.TimeTo),
						w.TriggerCount)
				}
				return nil
			})
		},
	}
}

func watchesAddCmd() *cobra.Command {
	var (
		locationID string
		label      string
		court      string
		date       string
		from       string
		to         string
		contact    string
		notes      string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locationID == "" {
				return fmt.Errorf("--location is required")
			}
			// Normalize to the zero-padded forms the matcher compares
			// against; "9:00" stored verbatim would never fire.
			if date != "" {
				d, err := availability.NormalizeDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", date)
				}
				date = d
			}
			for flag, v := range map[string]*string{"--from": &from, "--to": &to} {
				if *v == "" {
					continue
				}
				c, err := availability.NormalizeClock(*v)
				if err != nil {
					return fmt.Errorf("invalid %s %q (want HH:MM)", flag, *v)
				}
				*v = c
			}
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				ok, err := st.LocationExists(ctx, locationID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("unknown location %q (run a scrape first?)", locationID)
				}
				w, err := st.CreateWatch(ctx, availability.Watch{
					LocationID: locationID,
					Label:      label,
					CourtQuery: court,
					TargetDate: date,
					TimeFrom:   from,
					TimeTo:     to,
					Contact:    contact,
					Notes:      notes,
				})
				if err != nil {
					return err
				}
				logger.Info("Watch created", "id", w.ID, "location", w.LocationName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&locationID, "location", "", "Location ID (required)")
	cmd.Flags().StringVar(&label, "label", "", "Display label")
	cmd.Flags().StringVar(&court, "court", "", "Court name substring filter")
	cmd.Flags().StringVar(&date, "date", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "Earliest start time (HH:MM, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Latest start time (HH:MM, inclusive)")
	cmd.Flags().StringVar(&contact, "contact", "", "Email address for alerts")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

func watchesToggleCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle a watch between active and paused",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				w, err := st.ToggleWatch(ctx, id)
				if err != nil {
					return err
				}
				logger.Info("Watch toggled", "id", w.ID, "active", w.Active)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Watch ID")
	return cmd
}

func watchesDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a watch and its alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if err := st.DeleteWatch(ctx, id); err != nil {
					return err
				}
				logger.Info("Watch deleted", "id", id)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Watch ID")
	return cmd
}

// --------------------------------------------------------------------------
// alerts command
// --------------------------------------------------------------------------

func alertsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show recent alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				alerts, err := st.RecentAlerts(ctx, limit)
				if err != nil {
					return err
				}
				if len(alerts) == 0 {
					fmt.Println("no alerts")
					return nil
				}
				for _, a := range alerts {
					fmt.Printf("#%d\twatch=%d\t%s / %s\t%s\t(recorded %s)\n",
						a.ID, a.WatchID, a.LocationName, a.CourtName,
						a.StartLocal.Format("2006-01-02 15:04"),
						a.CreatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum alerts to show")
	return cmd
}

// --------------------------------------------------------------------------
// status command
// --------------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scraper sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				status, err := st.SyncStatus(ctx)
				if err != nil {
					return err
				}
				if status.LastSuccessfulSync != nil {
					fmt.Printf("last successful sync: %s (%s ago)\n",
						status.LastSuccessfulSync.Format(time.RFC3339),
						time.Since(*status.LastSuccessfulSync).Round(time.Second))
				} else {
					fmt.Println("last successful sync: never")
				}
				if status.LastError != "" {
					at := ""
					if status.LastErrorAt != nil {
						at = " at " + status.LastErrorAt.Format(time.RFC3339)
					}
					fmt.Printf("last error%s: %s\n", at, status.LastError)
				}
				return nil
			})
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, schema setup, DB connection, and context
// cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, st *store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := db.EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, store.New(pool))
}
