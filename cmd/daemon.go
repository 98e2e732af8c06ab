package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/config"
	"github.com/theirongolddev/budget/internal/daemon"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonRunFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Watch budgets in the background and serve status over HTTP/SSE",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the monitor is running and what it last saw",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running monitor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := daemon.NewRunFile(flagDaemonRunFile).Stop(cmd.Context(), 8*time.Second)
		if errors.Is(err, daemon.ErrNotRunning) {
			return errors.New("daemon is not running")
		}
		if err != nil {
			return err
		}
		fmt.Printf("  Stopped monitor (pid %d)\n", st.PID)
		return nil
	},
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "127.0.0.1:8788", "HTTP listen address")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from dashboard.refresh_interval_sec)")
	pf.StringVar(&flagDaemonRunFile, "run-file", filepath.Join(config.DataDir(), "budgetd.json"), "Run file recording pid and address")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.DataDir(), "budgetd.log"), "Log file in detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Events kept in memory for /v1/events")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Fork into the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: set on the forked process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("--detach and --child are exclusive")
	case flagDaemonDetach:
		return forkDaemon()
	default:
		return serveDaemon(cmd.Context())
	}
}

// forkDaemon re-executes the current command line without --detach. The
// child claims the run file itself once its session is verified.
func forkDaemon() error {
	if st, err := daemon.NewRunFile(flagDaemonRunFile).Live(); err == nil {
		return fmt.Errorf("daemon already running (pid %d on %s)", st.PID, st.Addr)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := slices.DeleteFunc(slices.Clone(os.Args[1:]), func(a string) bool {
		return a == "--detach" || strings.HasPrefix(a, "--detach=")
	})
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...)
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	fmt.Printf("  Started monitor (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Status: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log:    %s\n", flagDaemonLogFile)
	return nil
}

func serveDaemon(ctx context.Context) error {
	interval := flagDaemonInterval
	if interval == 0 {
		interval = cfg.RefreshInterval()
	}

	run := daemon.NewRunFile(flagDaemonRunFile)
	pid := os.Getpid()
	if err := run.Claim(daemon.RunState{
		PID:       pid,
		Addr:      flagDaemonAddr,
		Source:    svc.client.BaseURL(),
		Interval:  interval.String(),
		StartedAt: time.Now(),
	}); err != nil {
		return err
	}
	defer run.Release(pid)

	monitor := daemon.New(daemon.Config{
		Interval:     interval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
		Source:       svc.client.BaseURL(),
	}, svc.dashboard, func(ctx context.Context) error {
		_, err := svc.session.Refresh(ctx)
		return err
	}, logger)

	fmt.Printf("  Watching %s every %s\n", svc.client.BaseURL(), interval)
	fmt.Printf("  Serving http://%s (stop with `budget daemon stop`)\n", flagDaemonAddr)

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	st, err := daemon.NewRunFile(flagDaemonRunFile).Live()
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Println("  Monitor: not running")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println()
	printField("PID", fmt.Sprint(st.PID))
	printField("Address", "http://"+st.Addr)
	printField("Watching", st.Source)
	printField("Interval", st.Interval)
	printField("Up since", cli.FormatAge(st.StartedAt, time.Now()))

	status, err := fetchDaemonStatus(cmd.Context(), st.Addr)
	if err != nil {
		printField("API", cli.Colored(err.Error(), cli.ColorRed))
		fmt.Println()
		return nil
	}

	if status.LastPollAt.IsZero() {
		printField("Last poll", "pending")
	} else {
		printField("Last poll", fmt.Sprintf("%s (%d total)", cli.FormatAge(status.LastPollAt, time.Now()), status.PollCount))
	}
	sum := status.Summary
	printField("Spent", fmt.Sprintf("%s of %s (%s)",
		cli.FormatMoney(sum.TotalSpent, ""),
		cli.FormatMoney(sum.TotalBudget, ""),
		cli.FormatPercent(sum.PercentageUsed)))
	printField("Over budget", fmt.Sprint(sum.OverBudget))
	printField("Unread alerts", fmt.Sprint(sum.UnreadAlerts))
	if status.LastError != "" {
		printField("Last error", cli.Colored(status.LastError, cli.ColorRed))
	}
	fmt.Println()
	return nil
}

// fetchDaemonStatus fetches /v1/status from a running monitor.
func fetchDaemonStatus(ctx context.Context, addr string) (daemon.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return daemon.Status{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return daemon.Status{}, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return daemon.Status{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return daemon.Status{}, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}
