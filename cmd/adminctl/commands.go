package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"unearthify/internal/catalog/models"
	"unearthify/internal/listing"
	"unearthify/internal/session"
	"unearthify/pkg/client"
	strutil "unearthify/pkg/platform/strings"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: withEnv(opts, func(cmd *cobra.Command, _ []string, e *env) error {
			if password == "" {
				password = os.Getenv("UNEARTHIFY_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(e.out, "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			sess, err := e.client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Signed in as %s (%s)\n", sess.User.Email, sess.User.Role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password ($UNEARTHIFY_PASSWORD, prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and clear the session",
		RunE: withEnv(opts, func(cmd *cobra.Command, _ []string, e *env) error {
			if err := e.client.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(e.out, session.ReasonSignedOut.Message())
			return nil
		}),
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: withEnv(opts, func(cmd *cobra.Command, _ []string, e *env) error {
			u, err := e.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s <%s> role=%s id=%s\n", u.FullName, u.Email, u.Role, u.ID)
			return nil
		}),
	}
}

func newDashboardCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show record counts per kind",
		RunE: withEnv(opts, func(cmd *cobra.Command, _ []string, e *env) error {
			stats, err := e.client.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			counts, _ := stats["counts"].(map[string]any)
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			for _, k := range kinds {
				fmt.Fprintf(tw, "%s\t%v\n", k, counts[k])
			}
			fmt.Fprintf(tw, "pending review\t%v\n", stats["pending_review"])
			fmt.Fprintf(tw, "users\t%v\n", stats["users"])
			return tw.Flush()
		}),
	}
}

func parseKind(raw string) (models.Kind, error) {
	k := models.Kind(raw)
	if !slices.Contains(models.Kinds, k) {
		names := make([]string, len(models.Kinds))
		for i, k := range models.Kinds {
			names[i] = k.String()
		}
		return "", fmt.Errorf("unknown kind %q (one of %s)", raw, strings.Join(names, ", "))
	}
	return k, nil
}

func kindArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := parseKind(args[0])
	return err
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var q listing.Query
	var order, status string
	var columns []string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List records of a kind",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), kindArg),
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			kind, _ := parseKind(args[0])
			q.SortOrder = listing.SortOrder(order)
			q.SetFilterValue("status", status)

			page, err := e.client.List(cmd.Context(), kind, q)
			if err != nil {
				return err
			}
			printPage(e, page, columns)
			return nil
		}),
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "free-text search")
	cmd.Flags().StringVar(&q.SortKey, "sort", "", "sort field")
	cmd.Flags().StringVar(&order, "order", "asc", "sort order (asc or desc)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", listing.DefaultPageSize, "records per page")
	cmd.Flags().StringVar(&status, "status", "", "moderation status filter")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "fields to show (default: id plus every text field)")
	return cmd
}

func printPage(e *env, page *listing.Page[client.Record], columns []string) {
	if len(page.Items) == 0 {
		fmt.Fprintln(e.out, "No records found.")
		return
	}
	columns = strutil.DedupeAndTrimLower(columns)
	if len(columns) == 0 {
		columns = defaultColumns(page.Items[0])
	}

	tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, rec := range page.Items {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = truncate(fmt.Sprint(valueOr(rec[c], "")), 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush() //nolint:errcheck // stdout
	fmt.Fprintf(e.out, "Page %d of %d (%d records)\n", page.Page, page.TotalPages, page.Total)
}

var hiddenColumns = []string{"id", "created_at", "updated_at", "previous_status", "image_key", "description", "bio", "message"}

func defaultColumns(rec client.Record) []string {
	cols := []string{"id"}
	var rest []string
	for k, v := range rec {
		if _, ok := v.(string); ok && !slices.Contains(hiddenColumns, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func valueOr(v any, fallback string) any {
	if v == nil {
		return fallback
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// recordFunc matches client method expressions such as (*client.Client).Get.
type recordFunc func(c *client.Client, ctx context.Context, kind models.Kind, recordID string) (client.Record, error)

func deleteWith(op func(*client.Client, context.Context, models.Kind, string) error) recordFunc {
	return func(c *client.Client, ctx context.Context, kind models.Kind, recordID string) (client.Record, error) {
		return nil, op(c, ctx, kind, recordID)
	}
}

// newRecordCmds builds the single-record actions. Actions that return the
// record print it; the rest print a confirmation.
func newRecordCmds(opts *globalOptions) []*cobra.Command {
	actions := []struct {
		use, short string
		run        recordFunc
	}{
		{"get", "Show one record", (*client.Client).Get},
		{"approve", "Approve a pending record", (*client.Client).Approve},
		{"reject", "Reject a record", (*client.Client).Reject},
		{"recover", "Restore a deleted record", (*client.Client).Recover},
		{"delete", "Delete a record (soft for moderated kinds)", deleteWith((*client.Client).Delete)},
		{"purge", "Permanently delete a deleted or rejected record (admin)", deleteWith((*client.Client).Purge)},
	}

	cmds := make([]*cobra.Command, 0, len(actions))
	for _, a := range actions {
		cmds = append(cmds, &cobra.Command{
			Use:   a.use + " <kind> <id>",
			Short: a.short,
			Args:  cobra.MatchAll(cobra.ExactArgs(2), kindArg),
			RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
				kind, _ := parseKind(args[0])
				rec, err := a.run(e.client, cmd.Context(), kind, args[1])
				if err != nil {
					return err
				}
				if rec == nil {
					fmt.Fprintf(e.out, "%s: %s %s\n", a.use, kind, args[1])
					return nil
				}
				printRecord(e, rec)
				return nil
			}),
		})
	}
	return cmds
}

func printRecord(e *env, rec client.Record) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", k, rec[k])
	}
	tw.Flush() //nolint:errcheck // stdout
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var idle, poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Hold the session open until it expires, idles out or is interrupted",
		Long: `Hold the session open the way the web console does: the token is
re-checked every poll interval, the session ends at token expiry, and it ends
after the idle window passes without a line on stdin.`,
		RunE: withEnv(opts, func(cmd *cobra.Command, _ []string, e *env) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ended := make(chan session.Reason, 1)
			e.manager.OnLogout(func(n session.Notice) {
				select {
				case ended <- n.Reason:
				default:
				}
			})

			guard, err := e.manager.Guard(ctx, poll)
			if err != nil {
				if errors.Is(err, session.ErrUnauthenticated) {
					return errors.New("not signed in; run adminctl login")
				}
				return err
			}
			defer guard.Stop()
			if idle > 0 {
				e.manager.StartIdle(idle)
			}

			sess, err := e.manager.Session(ctx)
			if err == nil && sess != nil {
				fmt.Fprintf(e.out, "Watching session for %s. Press Enter to stay active, Ctrl-C to stop.\n", sess.User.Email)
			}

			go func() {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					e.manager.Activity(session.SignalKeyPress)
				}
			}()

			fmt.Fprintln(e.out, watchOutcome(ctx, guard.Done(), ended))
			return nil
		}),
	}
	cmd.Flags().DurationVar(&idle, "idle", 15*time.Minute, "sign out after this long without input (0 disables)")
	cmd.Flags().DurationVar(&poll, "poll", session.DefaultPollInterval, "token re-check interval")
	return cmd
}

// watchOutcome blocks until the watch ends. An interrupt wins over a guard
// that stopped because of it. A guard stopped by logout is followed by the
// logout notice, so its reason is awaited.
func watchOutcome(ctx context.Context, guardDone <-chan struct{}, ended <-chan session.Reason) string {
	select {
	case reason := <-ended:
		return fmt.Sprintf("session ended: %s", reason)
	case <-guardDone:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		return "stopped; session kept"
	}
	select {
	case reason := <-ended:
		return fmt.Sprintf("session ended: %s", reason)
	case <-ctx.Done():
		return "stopped; session kept"
	}
}
