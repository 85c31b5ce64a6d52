package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"stealth-automation/internal/browser"
	"stealth-automation/internal/config"
	"stealth-automation/internal/guard"
	"stealth-automation/internal/probe"
	"stealth-automation/internal/storage"
	"stealth-automation/pkg/logger"

	"github.com/spf13/cobra"
)

type App struct {
	config  *config.Config
	storage *storage.DB // nil when no MongoDB is configured
	browser *browser.Manager
	logger  logger.Logger
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	app := &App{
		config: cfg,
		logger: log,
	}

	if cfg.Storage.MongoDB.URI != "" {
		db, err := storage.New(&storage.Config{
			URI:      cfg.Storage.MongoDB.URI,
			Database: cfg.Storage.MongoDB.Database,
			Timeout:  time.Duration(cfg.Storage.MongoDB.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		app.storage = db
	} else {
		log.Warn("no mongodb uri configured, navigation history will not be recorded")
	}

	return app, nil
}

func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.storage != nil {
		a.storage.Close()
	}
}

// navRecorder persists guard outcomes. Recording failures are logged and
// swallowed, a broken log store must not turn a successful navigation into
// a failure.
type navRecorder struct {
	db       *storage.DB
	platform string
	logger   logger.Logger
}

func (r *navRecorder) Record(ctx context.Context, url, outcome, reason string, elapsed time.Duration) {
	rec := &storage.NavigationRecord{
		URL:        url,
		Outcome:    outcome,
		Reason:     reason,
		Platform:   r.platform,
		StartedAt:  time.Now().Add(-elapsed),
		DurationMS: elapsed.Milliseconds(),
	}
	if err := r.db.RecordNavigation(ctx, rec); err != nil {
		r.logger.Error("failed to record navigation", "error", err)
		return
	}
	if err := r.db.IncrementRateLimit(ctx, "navigate"); err != nil {
		r.logger.Error("failed to bump rate limit counter", "error", err)
	}
}

// guardConfig builds the guard settings from config, layering any
// platform-specific blocking signatures on top of the base list.
func (a *App) guardConfig(platform string) guard.Config {
	gcfg := guard.Config{
		MinRequestInterval: a.config.Guard.MinRequestInterval(),
		HumanDelayMin:      a.config.Guard.HumanDelayMin(),
		HumanDelayMax:      a.config.Guard.HumanDelayMax(),
		ProbeTimeout:       a.config.Guard.ProbeTimeout(),
		BlockingSignatures: a.config.Guard.BlockingSignatures,
	}

	if platform != "" {
		if p, ok := a.config.Platform(platform); ok && len(p.BlockingSignatures) > 0 {
			base := gcfg.BlockingSignatures
			if base == nil {
				base = guard.DefaultBlockingSignatures
			}
			merged := make([]string, 0, len(base)+len(p.BlockingSignatures))
			merged = append(merged, base...)
			merged = append(merged, p.BlockingSignatures...)
			gcfg.BlockingSignatures = merged
		}
	}

	return gcfg
}

// resolveTarget turns a CLI argument into a URL. A bare page name like
// "dashboard" is looked up in the platform's configured URL map.
func (a *App) resolveTarget(arg, platform string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	if platform == "" {
		return "", fmt.Errorf("%q is not a URL; pass --platform to resolve page names", arg)
	}
	p, ok := a.config.Platform(platform)
	if !ok {
		return "", fmt.Errorf("platform %q is not configured", platform)
	}
	url, ok := p.URLs[arg]
	if !ok {
		return "", fmt.Errorf("platform %q has no url named %q", platform, arg)
	}
	return url, nil
}

func (a *App) RunCheck(url string) error {
	prober := probe.NewHTTPProber()

	status, err := prober.Probe(context.Background(), url, a.config.Guard.ProbeTimeout())
	if err != nil {
		fmt.Printf("unreachable: %v\n", err)
		return nil
	}

	if status >= 200 && status < 400 {
		fmt.Printf("reachable (status %d)\n", status)
	} else {
		fmt.Printf("unreachable (status %d)\n", status)
	}
	return nil
}

func (a *App) RunNavigate(target, platform string) error {
	url, err := a.resolveTarget(target, platform)
	if err != nil {
		return err
	}

	mgr, err := browser.NewManager(&a.config.Browser, a.logger)
	if err != nil {
		return fmt.Errorf("failed to init browser: %w", err)
	}
	a.browser = mgr

	page, err := mgr.NewPage()
	if err != nil {
		return err
	}
	session := browser.NewPageSession(page)

	ctx := context.Background()
	cookieKey := "cookies:" + platform

	// Reuse a warmed session when we have one.
	if a.config.Browser.CookiePersistence && a.storage != nil && platform != "" {
		if blob, err := a.storage.GetSessionState(ctx, cookieKey); err == nil && blob != "" {
			if err := browser.ImportCookies(page, blob); err != nil {
				a.logger.Warn("failed to restore cookies, starting cold", "error", err)
			} else {
				a.logger.Info("restored session cookies", "platform", platform)
			}
		}
	}

	var recorder guard.Recorder
	if a.storage != nil {
		recorder = &navRecorder{db: a.storage, platform: platform, logger: a.logger}
	}

	g := guard.New(a.guardConfig(platform), probe.NewHTTPProber(), session, recorder, a.logger)

	ok, err := g.SafeNavigate(ctx, url)
	if err != nil {
		return err
	}

	if !ok {
		fmt.Println("navigation denied")
		return nil
	}

	// Browse a little before leaving.
	if err := browser.NewScroller().RandomScroll(page); err != nil {
		a.logger.Debug("dwell scroll failed", "error", err)
	}

	fmt.Printf("navigation succeeded: %s\n", session.Title())

	if a.config.Browser.CookiePersistence && a.storage != nil && platform != "" {
		blob, err := browser.ExportCookies(page)
		if err != nil {
			a.logger.Warn("failed to export cookies", "error", err)
			return nil
		}
		if err := a.storage.SaveSessionState(ctx, cookieKey, blob); err != nil {
			a.logger.Warn("failed to persist cookies", "error", err)
		}
	}

	return nil
}

func (a *App) RunHistory(limit int) error {
	if a.storage == nil {
		return fmt.Errorf("history requires mongodb storage to be configured")
	}

	records, err := a.storage.RecentNavigations(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no navigations recorded yet")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-9s  %s", rec.StartedAt.Format(time.RFC3339), rec.Outcome, rec.URL)
		if rec.Reason != "" {
			line += "  (" + rec.Reason + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func (a *App) RunStats() error {
	if a.storage == nil {
		return fmt.Errorf("stats requires mongodb storage to be configured")
	}

	ctx := context.Background()

	stats, err := a.storage.NavigationStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("succeeded: %d\n", stats[guard.OutcomeSucceeded])
	fmt.Printf("denied:    %d\n", stats[guard.OutcomeDenied])

	reasons, err := a.storage.DenialReasons(ctx)
	if err != nil {
		return err
	}
	for reason, count := range reasons {
		fmt.Printf("  %s: %d\n", reason, count)
	}

	today, err := a.storage.GetRateLimitCount(ctx, "navigate", "daily")
	if err != nil {
		return err
	}
	fmt.Printf("navigations today: %d\n", today)

	return nil
}

func main() {
	var cfgFile string
	var platform string
	var limit int

	rootCmd := &cobra.Command{
		Use:   "stealth",
		Short: "Guarded stealth browser navigation",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file")

	runCmd := func(action func(*App, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return action(app, args)
		}
	}

	checkCmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Probe a target for reachability without opening the browser",
		Args:  cobra.ExactArgs(1),
		RunE:  runCmd(func(a *App, args []string) error { return a.RunCheck(args[0]) }),
	}

	navigateCmd := &cobra.Command{
		Use:   "navigate <url|page>",
		Short: "Run a guarded navigation in a stealth browser session",
		Args:  cobra.ExactArgs(1),
		RunE:  runCmd(func(a *App, args []string) error { return a.RunNavigate(args[0], platform) }),
	}
	navigateCmd.Flags().StringVar(&platform, "platform", "", "configured platform name")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent navigation outcomes",
		RunE:  runCmd(func(a *App, args []string) error { return a.RunHistory(limit) }),
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "max records to show")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate navigation outcomes and today's request count",
		RunE:  runCmd(func(a *App, args []string) error { return a.RunStats() }),
	}

	rootCmd.AddCommand(checkCmd, navigateCmd, historyCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
