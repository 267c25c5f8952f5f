// Command adminctl is a terminal client for the Unearthify admin API. The
// session is kept in a SQLite file so successive invocations share it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"unearthify/internal/platform/logger"
	"unearthify/internal/session"
	"unearthify/pkg/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	server      string
	sessionPath string
	verbose     bool
	timeout     time.Duration
}

// env is what every subcommand runs against.
type env struct {
	store   *session.SQLiteStore
	manager *session.Manager
	client  *client.Client
	out     io.Writer
}

func (e *env) Close() {
	e.manager.Close()
	e.store.Close() //nolint:errcheck // process exits next
}

func openEnv(ctx context.Context, opts *globalOptions, out io.Writer) (*env, error) {
	if dir := filepath.Dir(opts.sessionPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	store, err := session.OpenSQLite(ctx, opts.sessionPath)
	if err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		log = logger.NewWithWriter(os.Stderr, "debug")
	}
	manager := session.NewManager(store, session.WithLogger(log))
	manager.OnLogout(func(n session.Notice) {
		if n.Reason != session.ReasonSignedOut {
			fmt.Fprintln(out, n.Message)
		}
	})
	return &env{
		store:   store,
		manager: manager,
		client: client.New(opts.server, manager,
			client.WithLogger(log),
			client.WithHTTPClient(&http.Client{Timeout: opts.timeout}),
		),
		out: out,
	}, nil
}

func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "unearthify", "session.db")
	}
	return "unearthify-session.db"
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Manage the Unearthify catalog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("UNEARTHIFY_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "API base URL ($UNEARTHIFY_URL)")
	root.PersistentFlags().StringVar(&opts.sessionPath, "session", defaultSessionPath(), "session database file")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log session events to stderr")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newDashboardCmd(opts),
		newListCmd(opts),
		newWatchCmd(opts),
	)
	root.AddCommand(newRecordCmds(opts)...)
	return root
}

// withEnv opens the session for the duration of run.
func withEnv(opts *globalOptions, run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd, args, e)
	}
}
