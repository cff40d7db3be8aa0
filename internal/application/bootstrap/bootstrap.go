// Package bootstrap drives the client's startup authentication flow:
// exchange launch credentials for a session, fall back to a persisted
// session, and land in exactly one terminal state.
package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/config"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// Status is the bootstrap phase. Authenticated and Failed are
// terminal: once reached the machine latches and later Run calls
// return the recorded outcome without touching the network.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusFailed          Status = "failed"
)

// User-facing failure messages
const (
	msgRelaunch    = "could not authenticate, try relaunching"
	msgOpenThrough = "open this app through Telegram"
)

const defaultTimeout = 10 * time.Second

// TokenHolder reports whether a persisted session token is available.
// Satisfied by the REST client.
type TokenHolder interface {
	Token() string
}

// Bootstrap is the startup authentication state machine
type Bootstrap struct {
	api    ports.AuthAPI
	tokens TokenHolder
	cfg    *config.Config
	logger *logger.Logger

	mu      sync.Mutex
	status  Status
	user    *entities.User
	message string
	devMode bool

	watchMu  sync.Mutex
	watchers map[int]func()
	nextID   int
}

// Snapshot is the observable bootstrap state
type Snapshot struct {
	Status  Status
	User    *entities.User
	Message string
	DevMode bool
}

// New creates a bootstrap machine in the unauthenticated state
func New(api ports.AuthAPI, tokens TokenHolder, cfg *config.Config, log *logger.Logger) *Bootstrap {
	return &Bootstrap{
		api:      api,
		tokens:   tokens,
		cfg:      cfg,
		logger:   log.WithComponent("bootstrap"),
		status:   StatusUnauthenticated,
		watchers: map[int]func(){},
	}
}

// Snapshot returns a copy of the current state
func (b *Bootstrap) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{Status: b.status, Message: b.message, DevMode: b.devMode}
	if b.user != nil {
		u := *b.user
		snap.User = &u
	}
	return snap
}

// Status returns the current phase
func (b *Bootstrap) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Watch registers a change callback and returns its unsubscribe func
func (b *Bootstrap) Watch(fn func()) func() {
	b.watchMu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	b.watchMu.Unlock()

	return func() {
		b.watchMu.Lock()
		delete(b.watchers, id)
		b.watchMu.Unlock()
	}
}

func (b *Bootstrap) notify() {
	b.watchMu.Lock()
	fns := make([]func(), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.watchMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Run executes the bootstrap sequence once. initData is the launch
// credential when the app was opened through Telegram, empty otherwise.
// The whole sequence runs under one deadline; a second Run after a
// terminal state is a no-op returning the latched outcome.
func (b *Bootstrap) Run(ctx context.Context, initData string) Snapshot {
	b.mu.Lock()
	if b.status == StatusAuthenticated || b.status == StatusFailed {
		b.mu.Unlock()
		return b.Snapshot()
	}
	b.status = StatusAuthenticating
	b.message = ""
	b.mu.Unlock()
	b.notify()

	timeout := b.cfg.Auth.BootstrapTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case initData != "":
		b.runWithInitData(ctx, initData)
	case b.tokens != nil && b.tokens.Token() != "":
		b.runWithPersistedSession(ctx)
	default:
		b.runWithoutCredential()
	}

	return b.Snapshot()
}

// runWithInitData exchanges the launch credential. A rejected or
// unreachable exchange is terminal; there is no silent fallback to a
// stale persisted session when fresh credentials were presented.
func (b *Bootstrap) runWithInitData(ctx context.Context, initData string) {
	user, err := b.api.Authenticate(ctx, initData)
	if err != nil {
		b.logger.Warnw("Credential exchange failed", "error", err.Error())
		b.fail(msgRelaunch)
		return
	}
	b.succeed(user, false)
}

// runWithPersistedSession validates the stored token against the
// backend. An invalid session falls through to the no-credential path.
func (b *Bootstrap) runWithPersistedSession(ctx context.Context) {
	user, err := b.api.Me(ctx)
	if err == nil {
		b.succeed(user, false)
		return
	}
	b.logger.Warnw("Persisted session rejected", "error", err.Error())
	b.runWithoutCredential()
}

// runWithoutCredential resolves the no-credential launch: a synthetic
// dev identity outside production, a terminal failure inside it.
func (b *Bootstrap) runWithoutCredential() {
	if b.cfg.App.IsProduction() {
		b.fail(msgOpenThrough)
		return
	}

	user := &entities.User{
		ID:        b.cfg.Auth.DevUserID,
		Username:  b.cfg.Auth.DevUserName,
		FirstName: b.cfg.Auth.DevUserName,
	}
	b.logger.Infow("Using development identity", "user_id", user.ID)
	b.succeed(user, true)
}

func (b *Bootstrap) succeed(user *entities.User, devMode bool) {
	b.mu.Lock()
	b.status = StatusAuthenticated
	b.user = user
	b.message = ""
	b.devMode = devMode
	b.mu.Unlock()
	b.notify()
	b.logger.Infow("Bootstrap complete", "user_id", user.ID, "dev_mode", devMode)
}

func (b *Bootstrap) fail(message string) {
	b.mu.Lock()
	b.status = StatusFailed
	b.user = nil
	b.message = message
	b.mu.Unlock()
	b.notify()
}
