// Package cmd implements the budget CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/theirongolddev/budget/internal/alerts"
	"github.com/theirongolddev/budget/internal/api"
	"github.com/theirongolddev/budget/internal/config"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/session"
	"github.com/theirongolddev/budget/internal/store"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagAPIURL    string
	flagQuiet     bool
)

var (
	cfg    config.Config
	logger = slog.Default()
	svc    *services
)

var rootCmd = &cobra.Command{
	Use:               "budget",
	Short:             "Personal budget dashboard",
	Long:              "Track budgets, spending, alerts and insights from your budgeting service.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) { closeServices() },
	PreRunE:           requireSession,
	RunE:              runDashboard,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeServices()
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Budget service base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	addDashboardFlags(rootCmd)
}

// setup resolves configuration in order file < .env < environment < flags and
// installs the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&loaded); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Logging.Level = flagLogLevel
	}
	if flags.Changed("log-format") {
		loaded.Logging.Format = flagLogFormat
	}
	if flags.Changed("api-url") {
		loaded.API.BaseURL = flagAPIURL
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger = newLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	theme.SetActive(cfg.Appearance.Theme)
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// services is the wired client core shared by every command.
type services struct {
	db        *store.DB
	client    *api.Client
	session   *session.Controller
	dashboard *dashboard.Aggregator
	alerts    *alerts.ViewModel
}

// getServices opens the credential store and wires the client core on first
// use, so commands like `config` never touch the database.
func getServices() (*services, error) {
	if svc != nil {
		return svc, nil
	}

	db, err := store.Open(cfg.CredentialsPath())
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.Timeout(),
		AITimeout: cfg.AITimeout(),
	}, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	join, err := dashboard.ParseJoin(cfg.Dashboard.Join)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	policy, err := alerts.ParseConsistency(cfg.Alerts.Consistency)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	svc = &services{
		db:      db,
		client:  client,
		session: session.NewController(session.NewState(), db, client, logger),
		dashboard: dashboard.New(client, dashboard.Options{
			Join:         join,
			AlertLimit:   cfg.Dashboard.AlertLimit,
			InsightLimit: cfg.Dashboard.InsightLimit,
		}, logger),
		alerts: alerts.New(client, policy, logger),
	}
	logger.Debug("services ready", "api", client.BaseURL(), "credentials", cfg.CredentialsPath())
	return svc, nil
}

func closeServices() {
	if svc == nil {
		return
	}
	if err := svc.db.Close(); err != nil {
		logger.Warn("closing credential store", "error", err)
	}
	svc = nil
}

// requireSession is the PreRunE of every protected command: it hydrates the
// session and lets the gate decide.
func requireSession(cmd *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}

	progress("Verifying session...")
	snap, err := s.session.Hydrate(cmd.Context())
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			// The stored credentials are gone either way.
			logger.Warn("session verification failed", "error", err)
			return session.ErrLoginRequired
		}
		return err
	}
	return session.Decide(snap).Err()
}

// currency is the signed-in user's preferred currency.
func currency() string {
	if svc == nil {
		return ""
	}
	if p := svc.session.View().Snapshot().FinancialProfile; p != nil {
		return p.Currency
	}
	return ""
}

func progress(msg string) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
}
