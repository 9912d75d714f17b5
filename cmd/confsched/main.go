package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"confsched/internal/bootstrap"
	scheduledto "confsched/internal/modules/schedule/dto"
	"confsched/internal/platform/config"
	"confsched/internal/platform/logging"
	"confsched/internal/ui/theme"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dataDir string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "confsched",
		Short:         "Offline-first conference schedule client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "dir", ".", "data directory holding the local cache")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newFavoritesCmd(opts))
	root.AddCommand(newFavoriteCmd(opts))
	root.AddCommand(newRatingsCmd(opts))
	root.AddCommand(newRateCmd(opts))
	root.AddCommand(newUnrateCmd(opts))
	root.AddCommand(newRefreshCmd(opts))
	root.AddCommand(newWhoamiCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	return root
}

func loadApp(ctx context.Context, opts *rootOptions, stderr io.Writer) (*bootstrap.App, config.Config, error) {
	cfg, err := config.Load(opts.dataDir)
	if err != nil {
		return nil, config.Config{}, err
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	app, err := bootstrap.New(ctx, cfg, logging.New(level, cfg.LogFormat, stderr))
	if err != nil {
		return nil, config.Config{}, err
	}
	return app, cfg, nil
}

// withOpenApp loads the cache (refreshing when it is empty), runs fn and
// prints any failures reported on the error channel.
func withOpenApp(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *bootstrap.App) error) error {
	ctx := cmd.Context()
	app, _, err := loadApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()
	if _, err := app.ScheduleCLI.Open(ctx); err != nil {
		return err
	}
	runErr := fn(ctx, app)
	app.ScheduleCLI.Wait()
	printErrors(cmd.ErrOrStderr(), app.PendingErrors())
	return runErr
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions from the local cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				if strings.TrimSpace(sessionID) != "" {
					s, err := app.ScheduleCLI.GetSession(ctx, sessionID)
					if err != nil {
						return err
					}
					printSessionDetail(cmd.OutOrStdout(), s)
					return nil
				}
				sessions, err := app.ScheduleCLI.ListSessions(ctx)
				if err != nil {
					return err
				}
				printSessions(cmd.OutOrStdout(), sessions, "no sessions")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "id", "", "show a single session")
	return cmd
}

func newFavoritesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				sessions, err := app.ScheduleCLI.ListFavorites(ctx)
				if err != nil {
					return err
				}
				printSessions(cmd.OutOrStdout(), sessions, "no favorites")
				return nil
			})
		},
	}
}

func newFavoriteCmd(opts *rootOptions) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "favorite <session-id>",
		Short: "Mark a session as favorite (or unmark with --off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ScheduleCLI.SetFavorite(ctx, args[0], !off)
				if err != nil {
					return err
				}
				printMutation(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove from favorites")
	return cmd
}

func newRatingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "List your session ratings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				ratings, err := app.ScheduleCLI.ListRatings(ctx)
				if err != nil {
					return err
				}
				if len(ratings) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("no ratings"))
					return nil
				}
				for _, r := range ratings {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.SessionID, theme.Hot.Render(strings.Repeat("*", r.Rating)))
				}
				return nil
			})
		},
	}
}

func newRateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <session-id> <1-5>",
		Short: "Rate a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be a number: %w", err)
			}
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ScheduleCLI.AddRating(ctx, args[0], rating)
				if err != nil {
					return err
				}
				printMutation(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newUnrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unrate <session-id>",
		Short: "Remove your rating of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ScheduleCLI.RemoveRating(ctx, args[0])
				if err != nil {
					return err
				}
				printMutation(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest schedule and reconcile favorites and ratings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, _, err := loadApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.ScheduleCLI.Start(ctx); err != nil {
				return err
			}
			app.ScheduleCLI.Wait()
			status, err := app.ScheduleCLI.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			printErrors(cmd.ErrOrStderr(), app.PendingErrors())
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the installation user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), app.UserID)
			return nil
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache fresh, print changes and serve /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, cfg, err := loadApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			if interval <= 0 {
				interval = cfg.RefreshInterval
			}
			if metricsAddr == "" {
				metricsAddr = cfg.MetricsAddr
			}

			srv, err := serveMetrics(metricsAddr, app.MetricsHandler())
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "metrics on http://%s/metrics\n", metricsAddr)

			updates := app.ScheduleCLI.Watch(ctx)
			if _, err := app.ScheduleCLI.Start(ctx); err != nil {
				return err
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			var refreshes sync.WaitGroup
			defer func() {
				refreshes.Wait()
				app.ScheduleCLI.Wait()
			}()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					refreshes.Add(1)
					go func() {
						defer refreshes.Done()
						_, _ = app.ScheduleCLI.Refresh(ctx)
					}()
				case status, ok := <-updates:
					if !ok {
						return nil
					}
					printStatus(cmd.OutOrStdout(), status)
				case kind := <-app.Errors():
					printErrors(cmd.ErrOrStderr(), []string{kind.Message()})
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (defaults to config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (defaults to config)")
	return cmd
}

func serveMetrics(addr string, handler http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("start metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_, _ = fmt.Fprintln(os.Stderr, "metrics server:", err)
		}
	}()
	return srv, nil
}

func printSessions(w io.Writer, sessions []scheduledto.SessionOutput, empty string) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, theme.Muted.Render(empty))
		return
	}
	for _, s := range sessions {
		marker := " "
		if s.Favorite {
			marker = theme.Favorite.Render("*")
		}
		_, _ = fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n",
			marker,
			theme.Muted.Render(s.StartsAt.Format("Mon 15:04")),
			theme.Room.Render(s.Room),
			theme.Title.Render(s.Title),
			theme.Muted.Render(s.ID),
		)
	}
}

func printSessionDetail(w io.Writer, s scheduledto.SessionOutput) {
	_, _ = fmt.Fprintf(w, "%s\n", theme.Title.Render(s.Title))
	_, _ = fmt.Fprintf(w, "id: %s\nroom: %s\ntime: %s - %s\nspeakers: %s\ncategories: %s\nfavorite: %t\nrating: %d\n",
		s.ID, s.Room,
		s.StartsAt.Format("2006-01-02 15:04"), s.EndsAt.Format("15:04"),
		strings.Join(s.Speakers, ", "), strings.Join(s.Categories, ", "),
		s.Favorite, s.Rating)
	if s.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", s.Description)
	}
}

func printMutation(w io.Writer, out scheduledto.MutationOutput) {
	if out.Failure != "" {
		_, _ = fmt.Fprintf(w, "%s %s (%s)\n", theme.Failure.Render(out.State), out.SessionID, out.Failure)
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", theme.OK.Render(out.State), out.SessionID)
}

func printStatus(w io.Writer, status scheduledto.StatusOutput) {
	state := "idle"
	if status.Updating {
		state = "updating"
	}
	last := "never"
	if !status.LastRefresh.IsZero() {
		last = status.LastRefresh.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(w, "%s sessions=%d favorites=%d ratings=%d pending=%d last_refresh=%s\n",
		theme.Title.Render(state), status.Sessions, status.Favorites, status.Ratings, len(status.Pending), last)
}

func printErrors(w io.Writer, messages []string) {
	for _, msg := range messages {
		_, _ = fmt.Fprintln(w, theme.Failure.Render(msg))
	}
}
