package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/justyntemme/duopane/internal/access"
	"github.com/justyntemme/duopane/internal/config"
	"github.com/justyntemme/duopane/internal/engine"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/history"
	"github.com/justyntemme/duopane/internal/logging"
	"github.com/justyntemme/duopane/internal/metrics"
	"github.com/justyntemme/duopane/internal/panel"
	"github.com/justyntemme/duopane/internal/store"
	"github.com/justyntemme/duopane/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run both panels and keep them current",
	Long: `Run the two panels until interrupted. Each panel rescans on its timer,
on filesystem events and on request. Commands are read from stdin; type
"help" for the list.

Panel paths, sort order, histories and listings are restored from the state
database and saved again on exit.

Examples:
  duopane watch
  duopane watch --left . --right /tmp --interval 30s
  duopane watch --access grant --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("left", "", "Left panel directory (default: last session)")
	watchCmd.Flags().String("right", "", "Right panel directory (default: last session)")
	watchCmd.Flags().Duration("interval", 0, "Refresh interval (default from config)")
	watchCmd.Flags().String("access", "", "Access policy: prompt, grant or deny (default from config)")
	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	watchCmd.Flags().Bool("no-watch", false, "Disable filesystem notifications")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	log := logging.L()
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	defaults := sessionDefaults(cfg, home)
	snap, err := db.LoadSnapshot(defaults)
	if err != nil {
		log.Warn("load snapshot", zap.Error(err))
		snap = defaults
	}

	paths := map[panel.Side]string{}
	for _, side := range panel.Sides {
		input, _ := cmd.Flags().GetString(side.String())
		paths[side] = startPath(side, input, snap.Path(side), cwd, home)
	}

	con := newConsole(os.Stdin, os.Stdout)
	prompter, err := accessPrompter(cmd, cfg, con)
	if err != nil {
		return err
	}
	grants := access.NewManager(db, prompter)

	selections := history.NewSelections(cfg.History.SelectionsMax)
	if recent, err := db.LoadSelections(); err == nil {
		selections.Restore(recent)
	} else {
		log.Warn("load selections", zap.Error(err))
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Panels.RefreshInterval()
	}

	opts := engine.Options{
		Scanner:         fs.NewScanner(),
		Access:          grants,
		Selections:      selections,
		RefreshInterval: interval,
		HistoryLimit:    cfg.History.MaxEntries,
		ShowHidden:      snap.ShowHidden,
		Home:            home,
		Observer: engine.ObserverFuncs{
			Result: func(side panel.Side, entries []fs.Entry) {
				con.Printf("[%s] %s entries\n", side, humanize.Comma(int64(len(entries))))
			},
			Error: func(side panel.Side, err error) {
				con.Printf("[%s] %s: %v\n", side, fs.Kind(err), err)
			},
		},
	}
	for _, side := range panel.Sides {
		hist, err := db.LoadHistory(side)
		if err != nil {
			log.Warn("load history", zap.String("side", side.String()), zap.Error(err))
		}
		po := engine.PanelOptions{
			Path:           paths[side],
			SortKey:        snap.SortKey,
			SortDescending: !snap.SortAscending,
			History:        hist,
		}
		if side == panel.Left {
			opts.Left = po
		} else {
			opts.Right = po
		}
	}

	noWatch, _ := cmd.Flags().GetBool("no-watch")
	if cfg.Watch.Enabled && !noWatch {
		w, err := watch.NewDirectoryWatcher(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond)
		if err != nil {
			log.Warn("filesystem notifications unavailable", zap.Error(err))
		} else {
			defer w.Close()
			opts.Watcher = w
		}
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	maxAge := cfg.Panels.StartupCacheMaxAge()
	for _, side := range panel.Sides {
		st, _ := eng.State(side)
		entries, ok, err := db.LoadListing(side, st.Path, maxAge)
		if err != nil {
			log.Warn("load listing", zap.String("side", side.String()), zap.Error(err))
		}
		if ok && eng.Prime(side, st.Path, entries) {
			con.Printf("[%s] %s (cached, %s entries)\n", side, st.Path, humanize.Comma(int64(len(entries))))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := serveMetrics(addr)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}
	con.Printf("left: %s\nright: %s\ntype help for commands\n", paths[panel.Left], paths[panel.Right])

	sess := &session{eng: eng, out: con, prefs: cfgManager, focus: snap.FocusedSide}
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-con.Lines():
			if !ok {
				break loop
			}
			if err := sess.exec(line); err != nil {
				if errors.Is(err, errQuit) {
					break loop
				}
				con.Printf("error: %v\n", err)
			}
		}
	}

	eng.Stop()
	snap.FocusedSide = sess.focus
	saveSession(db, eng, snap)
	return nil
}

// sessionDefaults applies the panels section of the config to the built-in
// snapshot. Stored session values override it.
func sessionDefaults(cfg config.Config, home string) store.Snapshot {
	snap := store.DefaultSnapshot(home)
	if key, err := fs.ParseSortKey(cfg.Panels.DefaultSort); err == nil {
		snap.SortKey = key
	} else if cfg.Panels.DefaultSort != "" {
		logging.L().Warn("ignoring config sort key", zap.String("defaultSort", cfg.Panels.DefaultSort), zap.Error(err))
	}
	snap.SortAscending = cfg.Panels.SortAscending
	snap.ShowHidden = cfg.Panels.ShowHidden
	return snap
}

// startPath picks a side's starting directory: the flag, then the last
// session, then home.
func startPath(side panel.Side, flagValue, stored, cwd, home string) string {
	candidates := []string{stored}
	if flagValue != "" {
		candidates = []string{flagValue}
	}
	for _, c := range candidates {
		p, err := fs.Canonicalize(c, cwd, home)
		if err != nil {
			continue
		}
		if err := fs.CheckDir(p); err != nil {
			logging.L().Warn("start path unavailable",
				zap.String("side", side.String()), zap.String("path", p), zap.Error(err))
			continue
		}
		return p
	}
	return home
}

// accessPrompter resolves the access policy. Prompting needs an interactive
// stdin unless the policy was given explicitly.
func accessPrompter(cmd *cobra.Command, cfg config.Config, asker access.Asker) (access.Prompter, error) {
	policy, _ := cmd.Flags().GetString("access")
	explicit := policy != ""
	if !explicit {
		policy = cfg.Access.Policy
	}
	if (policy == "" || policy == "prompt") && !explicit && !term.IsTerminal(int(os.Stdin.Fd())) {
		logging.L().Info("stdin is not a terminal, access requests will be denied")
		policy = "deny"
	}
	return access.ParsePolicy(policy, asker)
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics listener", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logging.L().Info("serving metrics", zap.String("addr", addr))
	return srv
}

// saveSession persists what the next run restores.
func saveSession(db *store.DB, eng *engine.Engine, prev store.Snapshot) {
	log := logging.L()
	left, _ := eng.State(panel.Left)
	right, _ := eng.State(panel.Right)

	snap := prev
	// favorites expand/collapse may have run while the session was open.
	if cur, err := db.LoadSnapshot(prev); err == nil {
		snap.ExpandedFolders = cur.ExpandedFolders
	}
	snap.LeftPath = left.Path
	snap.RightPath = right.Path
	snap.SortKey = left.SortKey
	snap.SortAscending = left.SortAscending
	snap.ShowHidden = eng.ShowHidden()
	if err := db.SaveSnapshot(snap); err != nil {
		log.Error("save snapshot", zap.Error(err))
	}

	for _, st := range []panel.State{left, right} {
		if err := db.SaveHistory(st.Side, eng.HistorySnapshot(st.Side)); err != nil {
			log.Error("save history", zap.String("side", st.Side.String()), zap.Error(err))
		}
		if st.LastError == nil {
			if err := db.SaveListing(st.Side, st.Path, st.Entries); err != nil {
				log.Error("save listing", zap.String("side", st.Side.String()), zap.Error(err))
			}
		}
	}
	if err := db.SaveSelections(eng.Selections().Recent()); err != nil {
		log.Error("save selections", zap.Error(err))
	}
}
