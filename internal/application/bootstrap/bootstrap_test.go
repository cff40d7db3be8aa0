package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/config"
	"github.com/boardflow/core/internal/infrastructure/logger"
)

var errRejected = errors.New("rejected")

type fakeAuthAPI struct {
	authenticateErr error
	meErr           error
	user            *entities.User

	authenticateCalls int
	meCalls           int
	block             time.Duration
}

func (f *fakeAuthAPI) Authenticate(ctx context.Context, initData string) (*entities.User, error) {
	f.authenticateCalls++
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.authenticateErr != nil {
		return nil, f.authenticateErr
	}
	return f.user, nil
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*entities.User, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

func (f *fakeAuthAPI) UpdateSettings(ctx context.Context, settings entities.Settings) (*entities.User, error) {
	return f.user, nil
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func testConfig(environment string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: environment},
		Auth: config.AuthConfig{
			BootstrapTimeout: time.Second,
			DevUserID:        1,
			DevUserName:      "dev",
		},
	}
}

func TestBootstrapWithInitDataSucceeds(t *testing.T) {
	api := &fakeAuthAPI{user: &entities.User{ID: 42, Username: "alice"}}
	b := New(api, staticToken(""), testConfig("production"), logger.NewNop())

	snap := b.Run(context.Background(), "query_id=1&hash=abc")

	if snap.Status != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %s (%q)", snap.Status, snap.Message)
	}
	if snap.User == nil || snap.User.ID != 42 {
		t.Fatalf("expected user 42, got %+v", snap.User)
	}
	if snap.DevMode {
		t.Fatal("real credential must not flag dev mode")
	}
}

func TestBootstrapWithInitDataFailureIsTerminal(t *testing.T) {
	api := &fakeAuthAPI{authenticateErr: errRejected, user: &entities.User{ID: 42}}
	b := New(api, staticToken("stale-token"), testConfig("development"), logger.NewNop())

	snap := b.Run(context.Background(), "query_id=1&hash=bad")

	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
	if snap.Message != "could not authenticate, try relaunching" {
		t.Fatalf("unexpected message %q", snap.Message)
	}
	// Fresh credentials were presented; the stale session must not be
	// consulted as a fallback.
	if api.meCalls != 0 {
		t.Fatalf("expected no session validation, got %d calls", api.meCalls)
	}
}

func TestBootstrapWithPersistedSession(t *testing.T) {
	api := &fakeAuthAPI{user: &entities.User{ID: 7}}
	b := New(api, staticToken("token"), testConfig("production"), logger.NewNop())

	snap := b.Run(context.Background(), "")

	if snap.Status != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %s (%q)", snap.Status, snap.Message)
	}
	if api.authenticateCalls != 0 {
		t.Fatal("persisted session path must not exchange credentials")
	}
	if api.meCalls != 1 {
		t.Fatalf("expected one session validation, got %d", api.meCalls)
	}
}

func TestBootstrapRejectedSessionFallsBackToDevIdentity(t *testing.T) {
	api := &fakeAuthAPI{meErr: errRejected}
	b := New(api, staticToken("expired"), testConfig("development"), logger.NewNop())

	snap := b.Run(context.Background(), "")

	if snap.Status != StatusAuthenticated {
		t.Fatalf("expected authenticated via dev identity, got %s", snap.Status)
	}
	if !snap.DevMode {
		t.Fatal("dev identity must flag dev mode")
	}
	if snap.User == nil || snap.User.ID != 1 || snap.User.Username != "dev" {
		t.Fatalf("expected configured dev identity, got %+v", snap.User)
	}
}

func TestBootstrapRejectedSessionFailsInProduction(t *testing.T) {
	api := &fakeAuthAPI{meErr: errRejected}
	b := New(api, staticToken("expired"), testConfig("production"), logger.NewNop())

	snap := b.Run(context.Background(), "")

	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
	if snap.Message != "open this app through Telegram" {
		t.Fatalf("unexpected message %q", snap.Message)
	}
}

func TestBootstrapNoCredentialDevIdentity(t *testing.T) {
	api := &fakeAuthAPI{}
	b := New(api, staticToken(""), testConfig("development"), logger.NewNop())

	snap := b.Run(context.Background(), "")

	if snap.Status != StatusAuthenticated || !snap.DevMode {
		t.Fatalf("expected dev identity, got %s dev=%v", snap.Status, snap.DevMode)
	}
	if api.authenticateCalls != 0 || api.meCalls != 0 {
		t.Fatal("no-credential dev path must stay off the network")
	}
}

func TestBootstrapNoCredentialFailsInProduction(t *testing.T) {
	api := &fakeAuthAPI{}
	b := New(api, staticToken(""), testConfig("production"), logger.NewNop())

	snap := b.Run(context.Background(), "")

	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
	if snap.Message != "open this app through Telegram" {
		t.Fatalf("unexpected message %q", snap.Message)
	}
}

func TestBootstrapTerminalStatesLatch(t *testing.T) {
	api := &fakeAuthAPI{authenticateErr: errRejected}
	b := New(api, staticToken(""), testConfig("production"), logger.NewNop())

	first := b.Run(context.Background(), "query_id=1&hash=bad")
	if first.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", first.Status)
	}

	// Retrying after a terminal state returns the latched outcome
	// without another exchange.
	api.authenticateErr = nil
	api.user = &entities.User{ID: 42}
	second := b.Run(context.Background(), "query_id=1&hash=abc")

	if second.Status != StatusFailed {
		t.Fatalf("terminal state must latch, got %s", second.Status)
	}
	if api.authenticateCalls != 1 {
		t.Fatalf("expected no retry exchange, got %d calls", api.authenticateCalls)
	}
}

func TestBootstrapTimeout(t *testing.T) {
	api := &fakeAuthAPI{user: &entities.User{ID: 42}, block: time.Minute}
	cfg := testConfig("production")
	cfg.Auth.BootstrapTimeout = 20 * time.Millisecond
	b := New(api, staticToken(""), cfg, logger.NewNop())

	start := time.Now()
	snap := b.Run(context.Background(), "query_id=1&hash=abc")

	if snap.Status != StatusFailed {
		t.Fatalf("expected failed on timeout, got %s", snap.Status)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout did not bound the sequence, took %s", elapsed)
	}
	if snap.Message != "could not authenticate, try relaunching" {
		t.Fatalf("unexpected message %q", snap.Message)
	}
}

func TestBootstrapWatchNotifies(t *testing.T) {
	api := &fakeAuthAPI{user: &entities.User{ID: 42}}
	b := New(api, staticToken(""), testConfig("production"), logger.NewNop())

	var statuses []Status
	unsubscribe := b.Watch(func() { statuses = append(statuses, b.Status()) })
	defer unsubscribe()

	b.Run(context.Background(), "query_id=1&hash=abc")

	if len(statuses) < 2 {
		t.Fatalf("expected authenticating and terminal notifications, got %v", statuses)
	}
	if statuses[0] != StatusAuthenticating {
		t.Fatalf("first transition must be authenticating, got %s", statuses[0])
	}
	if statuses[len(statuses)-1] != StatusAuthenticated {
		t.Fatalf("last transition must be authenticated, got %s", statuses[len(statuses)-1])
	}
}
