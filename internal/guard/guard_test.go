package guard

// Tests live inside the guard package to reach the overridable clock, sleep
// and delay hooks.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealth-automation/pkg/logger"
)

type fakeProber struct {
	status int
	err    error
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context, url string, timeout time.Duration) (int, error) {
	f.calls++
	return f.status, f.err
}

type fakeSession struct {
	title   string
	content string
	loadErr error
	loads   []string
}

func (f *fakeSession) Load(url string) error {
	f.loads = append(f.loads, url)
	return f.loadErr
}

func (f *fakeSession) Title() string   { return f.title }
func (f *fakeSession) Content() string { return f.content }

type fakeRecorder struct {
	outcomes []string
	reasons  []string
}

func (f *fakeRecorder) Record(ctx context.Context, url, outcome, reason string, elapsed time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
	f.reasons = append(f.reasons, reason)
}

func testLogger() logger.Logger {
	return logger.Nop()
}

func newTestGuard(cfg Config, p Prober, s Session, r Recorder) *Guard {
	g := New(cfg, p, s, r, testLogger())
	// No wall-clock sleeping in unit tests unless a test opts back in.
	g.sleep = func(time.Duration) {}
	return g
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.HumanDelayMin = 0
	cfg.HumanDelayMax = 0
	return cfg
}

func TestWaitForRateLimit_SuspendsForRemainder(t *testing.T) {
	cfg := fastConfig()
	cfg.MinRequestInterval = 3 * time.Second

	g := newTestGuard(cfg, &fakeProber{status: 200}, &fakeSession{}, nil)

	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	// First call: no prior request, must not sleep.
	g.WaitForRateLimit()
	assert.Empty(t, slept)

	// Second call 1s later: must suspend for the remaining 2s.
	clock = clock.Add(1 * time.Second)
	g.WaitForRateLimit()
	require.Len(t, slept, 1)
	assert.Equal(t, 2*time.Second, slept[0])

	// Third call well past the interval: proceeds immediately.
	clock = clock.Add(10 * time.Second)
	g.WaitForRateLimit()
	assert.Len(t, slept, 1)
}

func TestWaitForRateLimit_TimestampMonotonic(t *testing.T) {
	g := newTestGuard(fastConfig(), &fakeProber{status: 200}, &fakeSession{}, nil)

	var stamps []time.Time
	for i := 0; i < 5; i++ {
		g.WaitForRateLimit()
		stamps = append(stamps, g.lastRequest)
	}

	for i := 1; i < len(stamps); i++ {
		assert.False(t, stamps[i].Before(stamps[i-1]), "lastRequest went backwards at call %d", i)
	}
}

func TestCheckAccessibility(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"ok", 200, nil, true},
		{"redirect counts as success", 302, nil, true},
		{"server error", 503, nil, false},
		{"client blocked", 403, nil, false},
		{"transport failure", 0, errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{status: tt.status, err: tt.err}
			g := newTestGuard(fastConfig(), p, &fakeSession{}, nil)

			got := g.CheckAccessibility(context.Background(), "https://example.com")

			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, p.calls, "exactly one probe, no retries")
		})
	}
}

func TestCheckBlockingIndicators(t *testing.T) {
	g := newTestGuard(fastConfig(), &fakeProber{status: 200}, &fakeSession{}, nil)

	tests := []struct {
		name    string
		title   string
		content string
		want    bool
	}{
		{"clean page", "Dashboard", "Welcome back", false},
		{"signature in title", "Access Denied", "", true},
		{"signature in content", "Home", "You have made too many requests today", true},
		{"case insensitive", "", "RATE LIMIT exceeded", true},
		{"empty inputs never match", "", "", false},
		{"signature inside larger text", "Dash", "your account has been temporarily blocked", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CheckBlockingIndicators(tt.title, tt.content))
		})
	}
}

func TestCheckBlockingIndicators_Idempotent(t *testing.T) {
	g := newTestGuard(fastConfig(), &fakeProber{status: 200}, &fakeSession{}, nil)

	first := g.CheckBlockingIndicators("Access Denied", "")
	second := g.CheckBlockingIndicators("Access Denied", "")

	assert.True(t, first)
	assert.Equal(t, first, second)
}

func TestCheckBlockingIndicators_CallerSignatures(t *testing.T) {
	cfg := fastConfig()
	cfg.BlockingSignatures = []string{"captcha"}
	g := newTestGuard(cfg, &fakeProber{status: 200}, &fakeSession{}, nil)

	assert.True(t, g.CheckBlockingIndicators("Solve this CAPTCHA", ""))
	// Default signatures no longer apply once the caller supplies a list.
	assert.False(t, g.CheckBlockingIndicators("Access Denied", ""))
}

func TestHumanDelay_ZeroRangeReturnsImmediately(t *testing.T) {
	g := New(fastConfig(), &fakeProber{status: 200}, &fakeSession{}, nil, testLogger())

	start := time.Now()
	g.HumanDelay()

	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestHumanDelay_UsesInjectedSource(t *testing.T) {
	cfg := fastConfig()
	cfg.HumanDelayMin = 5 * time.Second
	cfg.HumanDelayMax = 12 * time.Second

	g := newTestGuard(cfg, &fakeProber{status: 200}, &fakeSession{}, nil)

	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }
	g.randDelay = func(min, max time.Duration) time.Duration {
		assert.Equal(t, 5*time.Second, min)
		assert.Equal(t, 12*time.Second, max)
		return 7 * time.Second
	}

	g.HumanDelay()

	require.Len(t, slept, 1)
	assert.Equal(t, 7*time.Second, slept[0])
}

func TestHumanDelay_DefaultSourceStaysInBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.HumanDelayMin = 10 * time.Millisecond
	cfg.HumanDelayMax = 30 * time.Millisecond

	g := newTestGuard(cfg, &fakeProber{status: 200}, &fakeSession{}, nil)

	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	for i := 0; i < 100; i++ {
		g.HumanDelay()
	}

	require.Len(t, slept, 100)
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 30*time.Millisecond)
	}
}

func TestSafeNavigate_FullSuccess(t *testing.T) {
	// Scenario: probe 200, load succeeds, title "Dashboard", empty content.
	p := &fakeProber{status: 200}
	s := &fakeSession{title: "Dashboard", content: ""}
	r := &fakeRecorder{}
	g := newTestGuard(fastConfig(), p, s, r)

	ok, err := g.SafeNavigate(context.Background(), "https://example.com/dashboard")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"https://example.com/dashboard"}, s.loads)
	assert.Equal(t, []string{OutcomeSucceeded}, r.outcomes)
}

func TestSafeNavigate_UnreachableSkipsLoad(t *testing.T) {
	// Scenario: probe 503, navigation must never be attempted.
	p := &fakeProber{status: 503}
	s := &fakeSession{}
	r := &fakeRecorder{}
	g := newTestGuard(fastConfig(), p, s, r)

	ok, err := g.SafeNavigate(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.loads, "load must not be attempted after a failed probe")
	assert.Equal(t, []string{OutcomeDenied}, r.outcomes)
	assert.Equal(t, []string{ReasonUnreachable}, r.reasons)
}

func TestSafeNavigate_BlockingSignatureDenies(t *testing.T) {
	// Scenario: probe 200, load succeeds, content carries a block page.
	p := &fakeProber{status: 200}
	s := &fakeSession{title: "example.com", content: "Too Many Requests"}
	r := &fakeRecorder{}
	g := newTestGuard(fastConfig(), p, s, r)

	ok, err := g.SafeNavigate(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{ReasonBlocked}, r.reasons)
}

func TestSafeNavigate_LoadFailureDenies(t *testing.T) {
	p := &fakeProber{status: 200}
	s := &fakeSession{loadErr: errors.New("net::ERR_CONNECTION_RESET")}
	r := &fakeRecorder{}
	g := newTestGuard(fastConfig(), p, s, r)

	ok, err := g.SafeNavigate(context.Background(), "https://example.com")

	require.NoError(t, err, "collaborator failure is a denial, not an error")
	assert.False(t, ok)
	assert.Equal(t, []string{ReasonLoadFailed}, r.reasons)
}

func TestSafeNavigate_Misuse(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		g := newTestGuard(fastConfig(), &fakeProber{status: 200}, nil, nil)

		ok, err := g.SafeNavigate(context.Background(), "https://example.com")

		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("malformed url", func(t *testing.T) {
		p := &fakeProber{status: 200}
		g := newTestGuard(fastConfig(), p, &fakeSession{}, nil)

		ok, err := g.SafeNavigate(context.Background(), "not a url")

		assert.False(t, ok)
		assert.Error(t, err)
		assert.Zero(t, p.calls, "no probe for a malformed url")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		g := newTestGuard(fastConfig(), &fakeProber{status: 200}, &fakeSession{}, nil)

		ok, err := g.SafeNavigate(context.Background(), "ftp://example.com/file")

		assert.False(t, ok)
		assert.Error(t, err)
	})
}

func TestSafeNavigate_PacingAcrossCalls(t *testing.T) {
	// Scenario: two navigations back to back with a 150ms interval must
	// spend at least 150ms in the pacing step overall. Real sleeps, kept
	// short.
	cfg := fastConfig()
	cfg.MinRequestInterval = 150 * time.Millisecond

	p := &fakeProber{status: 200}
	s := &fakeSession{title: "Dashboard"}
	g := New(cfg, p, s, nil, testLogger())

	start := time.Now()

	ok, err := g.SafeNavigate(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.SafeNavigate(context.Background(), "https://example.com/b")
	require.NoError(t, err)
	require.True(t, ok)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestNew_NilSignaturesFallBackToDefaults(t *testing.T) {
	cfg := fastConfig()
	cfg.BlockingSignatures = nil

	g := New(cfg, &fakeProber{status: 200}, &fakeSession{}, nil, testLogger())

	assert.True(t, g.CheckBlockingIndicators("Access Denied", ""))
}

func TestNew_EmptySignaturesDisableDetection(t *testing.T) {
	cfg := fastConfig()
	cfg.BlockingSignatures = []string{}

	g := New(cfg, &fakeProber{status: 200}, &fakeSession{}, nil, testLogger())

	assert.False(t, g.CheckBlockingIndicators("Access Denied", "blocked"))
}
