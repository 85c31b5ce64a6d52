package guard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"stealth-automation/pkg/logger"
)

// Prober performs a lightweight out-of-band reachability check against a URL.
// Any HTTP client capable of a single bounded GET satisfies this.
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) (int, error)
}

// Session is the browser capability the guard navigates through. Title and
// Content are best-effort and may return "" when the page state is
// unavailable.
type Session interface {
	Load(url string) error
	Title() string
	Content() string
}

// Recorder receives the outcome of every completed SafeNavigate call.
// Implementations must not block for long; recording failures are the
// implementation's problem, not the guard's.
type Recorder interface {
	Record(ctx context.Context, url, outcome, reason string, elapsed time.Duration)
}

// Navigation outcomes as stored/reported.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDenied    = "denied"
)

// Denial reasons.
const (
	ReasonUnreachable = "target unreachable"
	ReasonLoadFailed  = "page load failed"
	ReasonBlocked     = "blocking signature matched"
)

// ErrNoSession is returned when SafeNavigate is called on a guard that was
// constructed without a browser session.
var ErrNoSession = errors.New("guard: no browser session attached")

// DefaultBlockingSignatures are substrings commonly found on anti-bot block
// and challenge pages. The list is heuristic, callers should supply their
// own per platform.
var DefaultBlockingSignatures = []string{
	"blocked",
	"access denied",
	"forbidden",
	"too many requests",
	"rate limit",
}

type Config struct {
	MinRequestInterval time.Duration
	HumanDelayMin      time.Duration
	HumanDelayMax      time.Duration
	ProbeTimeout       time.Duration
	BlockingSignatures []string
}

// DefaultConfig returns the stock pacing and detection settings.
func DefaultConfig() Config {
	return Config{
		MinRequestInterval: 3 * time.Second,
		HumanDelayMin:      5 * time.Second,
		HumanDelayMax:      12 * time.Second,
		ProbeTimeout:       10 * time.Second,
		BlockingSignatures: DefaultBlockingSignatures,
	}
}

// Guard gates every outbound navigation through three sequential checks:
// pre-flight reachability, rate-limit pacing, and post-navigation blocking
// detection. One guard serves exactly one browser session and is not safe
// for concurrent use; callers must not invoke SafeNavigate concurrently on
// the same guard.
type Guard struct {
	cfg      Config
	prober   Prober
	session  Session
	recorder Recorder
	logger   logger.Logger

	lastRequest time.Time

	// Overridable for tests.
	now       func() time.Time
	sleep     func(time.Duration)
	randDelay func(min, max time.Duration) time.Duration
}

// New creates a guard for one browser session. recorder may be nil.
// A nil BlockingSignatures list falls back to DefaultBlockingSignatures; an
// empty non-nil list disables blocking detection.
func New(cfg Config, prober Prober, session Session, recorder Recorder, log logger.Logger) *Guard {
	if cfg.BlockingSignatures == nil {
		cfg.BlockingSignatures = DefaultBlockingSignatures
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return &Guard{
		cfg:      cfg,
		prober:   prober,
		session:  session,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
		sleep:    time.Sleep,
		randDelay: func(min, max time.Duration) time.Duration {
			if max <= min {
				return min
			}
			return min + time.Duration(rng.Int63n(int64(max-min)+1))
		},
	}
}

// CheckAccessibility issues exactly one reachability probe. It reports true
// only when the probe completes with a success-class status (2xx/3xx). A
// failed probe is a signal to abort, not a transient error to mask, so
// there are no retries.
func (g *Guard) CheckAccessibility(ctx context.Context, rawURL string) bool {
	status, err := g.prober.Probe(ctx, rawURL, g.cfg.ProbeTimeout)
	if err != nil {
		g.logger.Debug("reachability probe failed", "url", rawURL, "error", err)
		return false
	}

	if status < 200 || status >= 400 {
		g.logger.Debug("reachability probe returned non-success status", "url", rawURL, "status", status)
		return false
	}

	return true
}

// WaitForRateLimit suspends until at least MinRequestInterval has passed
// since the previous navigation attempt, then stamps the attempt. No two
// attempts from the same guard start less than MinRequestInterval apart.
func (g *Guard) WaitForRateLimit() {
	if !g.lastRequest.IsZero() {
		elapsed := g.now().Sub(g.lastRequest)
		if elapsed < g.cfg.MinRequestInterval {
			g.sleep(g.cfg.MinRequestInterval - elapsed)
		}
	}
	g.lastRequest = g.now()
}

// HumanDelay suspends for a pseudo-uniform duration drawn from the
// configured range, emulating human dwell time after a page load. A (0,0)
// range returns immediately.
func (g *Guard) HumanDelay() {
	d := g.randDelay(g.cfg.HumanDelayMin, g.cfg.HumanDelayMax)
	if d > 0 {
		g.sleep(d)
	}
}

// CheckBlockingIndicators reports whether any configured blocking signature
// appears in the page title or content, case-insensitively. Empty inputs
// never match: absence of evidence is not evidence of blocking.
func (g *Guard) CheckBlockingIndicators(pageTitle, pageContent string) bool {
	if pageTitle == "" && pageContent == "" {
		return false
	}

	title := strings.ToLower(pageTitle)
	content := strings.ToLower(pageContent)

	for _, sig := range g.cfg.BlockingSignatures {
		s := strings.ToLower(strings.TrimSpace(sig))
		if s == "" {
			continue
		}
		if strings.Contains(title, s) || strings.Contains(content, s) {
			return true
		}
	}

	return false
}

// SafeNavigate runs the full gate: reachability check, pacing, page load,
// dwell, blocking detection. It returns true only when every check passes;
// denial is a normal outcome reported as (false, nil) with no further
// checks attempted. Only contractual misuse (missing session, malformed
// URL) yields an error. ctx bounds the reachability probe only; the sleeps
// have no cancellation support.
func (g *Guard) SafeNavigate(ctx context.Context, rawURL string) (bool, error) {
	if g.session == nil {
		return false, ErrNoSession
	}
	if err := validateURL(rawURL); err != nil {
		return false, err
	}

	start := time.Now()

	if !g.CheckAccessibility(ctx, rawURL) {
		return g.deny(ctx, rawURL, ReasonUnreachable, start), nil
	}

	g.WaitForRateLimit()

	if err := g.session.Load(rawURL); err != nil {
		g.logger.Warn("page load failed", "url", rawURL, "error", err)
		return g.deny(ctx, rawURL, ReasonLoadFailed, start), nil
	}

	g.HumanDelay()

	if g.CheckBlockingIndicators(g.session.Title(), g.session.Content()) {
		return g.deny(ctx, rawURL, ReasonBlocked, start), nil
	}

	g.logger.Info("navigation succeeded", "url", rawURL)
	g.record(ctx, rawURL, OutcomeSucceeded, "", start)
	return true, nil
}

func (g *Guard) deny(ctx context.Context, rawURL, reason string, start time.Time) bool {
	g.logger.Warn("navigation denied", "url", rawURL, "reason", reason)
	g.record(ctx, rawURL, OutcomeDenied, reason, start)
	return false
}

func (g *Guard) record(ctx context.Context, rawURL, outcome, reason string, start time.Time) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(ctx, rawURL, outcome, reason, time.Since(start))
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("malformed url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
