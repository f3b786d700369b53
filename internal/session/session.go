// Package session owns the bearer token and the signed-in user's profile.
//
// The Manager is the only writer of the auth_token and auth_user records. It
// implements client.Authenticator so every API call picks up the current
// token, and so any 401 funnels back into a forced sign-out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/internal/store"
	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

// API is the subset of the API client the Manager calls.
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResult, error)
	Register(ctx context.Context, r client.RegisterRequest) (string, error)
	Me(ctx context.Context) (*domain.User, error)
}

// State is a snapshot of the session.
type State struct {
	Token string
	// User is the last known profile. Trust it only when Verified is set.
	User *domain.User
	// Verifying is true while a persisted token is being checked at startup.
	Verifying bool
	// Verified is true once the server has accepted the token in this
	// process, either at startup or by a successful login.
	Verified bool
}

// Authenticated reports whether a token is held.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Event is delivered to subscribers after every change.
type Event struct {
	State State
	// Forced is set when the API rejected the token and the session was
	// cleared without the user asking.
	Forced bool
}

// Manager holds the session for one process.
type Manager struct {
	api    API
	store  store.Store
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	// gen increments on every login or clear so a slow verification cannot
	// resurrect a session that was replaced while it was in flight.
	gen     uint64
	subs    map[int]func(Event)
	nextSub int
}

// NewManager returns a signed-out Manager. Call Initialize to restore a
// persisted session.
func NewManager(api API, st store.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:    api,
		store:  st,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(Event)),
	}
}

// Initialize restores the persisted token, if any, and verifies it against
// GET /auth/me. An expired JWT is dropped without a network call. On any
// failure the persisted records are cleared and the session stays signed out;
// the failure is not returned.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	tok, err := m.store.Get(ctx, store.KeyAuthToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("read persisted token", zap.Error(err))
		}
		return
	}
	token := string(tok)
	if token == "" {
		return
	}
	expired := tokenExpired(token, m.now())

	m.mu.Lock()
	if m.gen != gen {
		// A login or logout landed while the token was read; that wins.
		m.mu.Unlock()
		return
	}
	if expired {
		changed := m.state.Authenticated()
		if cerr := m.clearLocked(); cerr != nil {
			m.logger.Warn("clear persisted session", zap.Error(cerr))
		}
		ev := m.eventLocked(false)
		m.mu.Unlock()
		m.logger.Info("persisted token expired, discarding")
		if changed {
			m.publish(ev)
		}
		return
	}
	m.state = State{Token: token, User: m.loadUser(ctx), Verifying: true}
	ev := m.eventLocked(false)
	m.mu.Unlock()
	m.publish(ev)

	user, err := m.api.Me(ctx)

	m.mu.Lock()
	switch {
	case m.gen != gen:
		// Signed out or signed in again while verifying; that wins.
	case err != nil:
		m.logger.Info("persisted token rejected", zap.Error(err))
		if cerr := m.clearLocked(); cerr != nil {
			m.logger.Warn("clear persisted session", zap.Error(cerr))
		}
	default:
		if perr := m.putUser(ctx, user); perr != nil {
			m.logger.Warn("persist verified profile", zap.Error(perr))
		}
		m.state.User = user
		m.state.Verified = true
	}
	m.state.Verifying = false
	ev = m.eventLocked(false)
	m.mu.Unlock()
	m.publish(ev)
}

// Login validates the credentials and signs in. On any failure the previous
// session is left exactly as it was.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := validate.Login(email, password); err != nil {
		return err
	}
	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}

	m.mu.Lock()
	if err := m.persistLocked(ctx, res.Token, &res.User); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("session.Login: %w", err)
	}
	user := res.User
	m.gen++
	m.state = State{Token: res.Token, User: &user, Verified: true}
	ev := m.eventLocked(false)
	m.mu.Unlock()

	m.publish(ev)
	m.logger.Info("signed in", zap.String("user_id", user.ID.String()))
	return nil
}

// Register creates an account and returns the server's message. The session
// is never changed; the user signs in separately.
func (m *Manager) Register(ctx context.Context, r client.RegisterRequest) (string, error) {
	if err := validate.Account(r.Email, r.Password, r.Username); err != nil {
		return "", err
	}
	msg, err := m.api.Register(ctx, r)
	if err != nil {
		return "", fmt.Errorf("session.Register: %w", err)
	}
	return msg, nil
}

// Logout signs out locally. It never calls the API and is safe to repeat.
// Memory is cleared even when removing the persisted records fails.
func (m *Manager) Logout() error {
	m.mu.Lock()
	changed := m.state.Authenticated()
	err := m.clearLocked()
	ev := m.eventLocked(false)
	m.mu.Unlock()

	if changed {
		m.publish(ev)
	}
	if err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	return nil
}

// Unauthorized is called by the API client after a 401. It clears the session
// the same way Logout does and emits a forced event.
func (m *Manager) Unauthorized() {
	m.clear(true)
}

// Token returns the current bearer token.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Token
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// User returns a copy of the current profile, or nil when signed out.
func (m *Manager) User() *domain.User {
	return m.State().User
}

// Subscribe registers fn for every change and returns a function that
// removes it. fn runs on the goroutine that made the change and must not
// block.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) clear(forced bool) {
	m.mu.Lock()
	changed := m.state.Authenticated()
	if err := m.clearLocked(); err != nil {
		m.logger.Warn("clear persisted session", zap.Error(err))
	}
	ev := m.eventLocked(forced)
	m.mu.Unlock()

	if changed {
		if forced {
			m.logger.Info("session rejected by API, signed out")
		}
		m.publish(ev)
	}
}

// clearLocked drops the token and profile from memory and storage. The
// verifying flag is left to Initialize.
func (m *Manager) clearLocked() error {
	ctx := context.Background()
	errTok := m.store.Delete(ctx, store.KeyAuthToken)
	errUser := m.store.Delete(ctx, store.KeyAuthUser)
	m.gen++
	m.state = State{Verifying: m.state.Verifying}
	return errors.Join(errTok, errUser)
}

// persistLocked writes token and user, restoring the previous records if
// either write fails.
func (m *Manager) persistLocked(ctx context.Context, token string, user *domain.User) error {
	prevTok, tokErr := m.store.Get(ctx, store.KeyAuthToken)
	prevUser, userErr := m.store.Get(ctx, store.KeyAuthUser)

	if err := m.store.Set(ctx, store.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := m.putUser(ctx, user); err != nil {
		m.restore(ctx, store.KeyAuthToken, prevTok, tokErr)
		m.restore(ctx, store.KeyAuthUser, prevUser, userErr)
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (m *Manager) restore(ctx context.Context, key string, prev []byte, prevErr error) {
	var err error
	if prevErr != nil {
		err = m.store.Delete(ctx, key)
	} else {
		err = m.store.Set(ctx, key, prev)
	}
	if err != nil {
		m.logger.Warn("roll back session record", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) putUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, store.KeyAuthUser, data)
}

func (m *Manager) loadUser(ctx context.Context) *domain.User {
	data, err := m.store.Get(ctx, store.KeyAuthUser)
	if err != nil {
		return nil
	}
	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		m.logger.Warn("discarding corrupt persisted profile", zap.Error(err))
		return nil
	}
	return &u
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

type delivery struct {
	ev  Event
	fns []func(Event)
}

func (m *Manager) eventLocked(forced bool) delivery {
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return delivery{ev: Event{State: m.snapshotLocked(), Forced: forced}, fns: fns}
}

func (m *Manager) publish(d delivery) {
	for _, fn := range d.fns {
		fn(d.ev)
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// The signature is not checked; only the server can do that. Tokens that are
// not JWTs, or carry no exp, are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
