package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/internal/store"
	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

// newServerManager wires a Manager to a real client talking to handler, the
// same way the application does.
func newServerManager(t *testing.T, handler http.HandlerFunc) (*Manager, *store.MemoryStore, *client.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st := store.NewMemoryStore()
	c := client.New(srv.URL)
	m := NewManager(c, st, zap.NewNop())
	c.SetAuthenticator(m)
	return m, st, c
}

// fakeAPI records calls and returns canned results.
type fakeAPI struct {
	mu       sync.Mutex
	loginRes *client.LoginResult
	loginErr error
	meUser   *domain.User
	meErr    error
	meCalls  int
	regCalls int
	meHook   func()
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (*client.LoginResult, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Register(_ context.Context, _ client.RegisterRequest) (string, error) {
	f.mu.Lock()
	f.regCalls++
	f.mu.Unlock()
	return "Registration successful", nil
}

func (f *fakeAPI) Me(_ context.Context) (*domain.User, error) {
	f.mu.Lock()
	f.meCalls++
	hook := f.meHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.meUser, f.meErr
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestInitialize_NoToken(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, store.NewMemoryStore(), nil)

	m.Initialize(context.Background())

	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.State().Verifying)
	assert.Zero(t, api.meCalls)
}

func TestInitialize_VerifiesPersistedToken(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newServerManager(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"user":{"id":7,"email":"ron@hogwarts.edu","username":"ron"}}`)) //nolint:errcheck
	})
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte("opaque-token")))

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })
	m.Initialize(ctx)

	s := m.State()
	assert.True(t, s.Authenticated())
	assert.True(t, s.Verified)
	assert.False(t, s.Verifying)
	require.NotNil(t, s.User)
	assert.Equal(t, domain.ID("7"), s.User.ID)

	stored, err := st.Get(ctx, store.KeyAuthUser)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "ron@hogwarts.edu")

	require.Len(t, events, 2)
	assert.True(t, events[0].State.Verifying, "first event marks verification start")
	assert.False(t, events[1].State.Verifying)
}

func TestInitialize_RejectedTokenIsCleared(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newServerManager(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid token"}`)) //nolint:errcheck
	})
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte("stale")))
	require.NoError(t, st.Set(ctx, store.KeyAuthUser, []byte(`{"id":"u1"}`)))

	m.Initialize(ctx)

	s := m.State()
	assert.False(t, s.Authenticated())
	assert.False(t, s.Verifying)
	assert.Nil(t, s.User)
	_, err := st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, store.KeyAuthUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInitialize_NetworkFailureClears(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte("tok")))
	api := &fakeAPI{meErr: errors.New("connection refused")}
	m := NewManager(api, st, nil)

	m.Initialize(ctx)

	assert.False(t, m.IsAuthenticated())
	_, err := st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInitialize_ExpiredJWTSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte(signedToken(t, time.Now().Add(-time.Hour)))))
	api := &fakeAPI{meUser: &domain.User{ID: "u1"}}
	m := NewManager(api, st, nil)

	m.Initialize(ctx)

	assert.False(t, m.IsAuthenticated())
	assert.Zero(t, api.meCalls)
	_, err := st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInitialize_LiveJWTIsVerified(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte(signedToken(t, time.Now().Add(time.Hour)))))
	api := &fakeAPI{meUser: &domain.User{ID: "u1"}}
	m := NewManager(api, st, nil)

	m.Initialize(ctx)

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, 1, api.meCalls)
}

func TestInitialize_VerifyingDuringCall(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte("tok")))
	api := &fakeAPI{meUser: &domain.User{ID: "u1"}}
	m := NewManager(api, st, nil)

	var during State
	api.meHook = func() { during = m.State() }
	m.Initialize(ctx)

	assert.True(t, during.Verifying)
	assert.Equal(t, "tok", during.Token)
	assert.False(t, during.Verified)
	assert.False(t, m.State().Verifying)
}

func TestInitialize_LogoutWhileVerifyingWins(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte("tok")))
	api := &fakeAPI{meUser: &domain.User{ID: "u1"}}
	m := NewManager(api, st, nil)

	api.meHook = func() { require.NoError(t, m.Logout()) }
	m.Initialize(ctx)

	assert.False(t, m.IsAuthenticated())
	_, err := st.Get(ctx, store.KeyAuthUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// racingStore runs onRead once, right after the first token read, as if
// another goroutine acted between the read and whatever follows it.
type racingStore struct {
	*store.MemoryStore
	onRead func()
}

func (s *racingStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.MemoryStore.Get(ctx, key)
	if key == store.KeyAuthToken && s.onRead != nil {
		hook := s.onRead
		s.onRead = nil
		hook()
	}
	return v, err
}

func TestInitialize_LoginDuringTokenReadWins(t *testing.T) {
	tests := []struct {
		name  string
		stale string
	}{
		{"opaque token", "stale"},
		{"expired jwt", signedToken(t, time.Now().Add(-time.Hour))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			st := &racingStore{MemoryStore: store.NewMemoryStore()}
			require.NoError(t, st.Set(ctx, store.KeyAuthToken, []byte(tc.stale)))
			api := &fakeAPI{
				loginRes: &client.LoginResult{Token: "fresh", User: domain.User{ID: "u1"}},
				meErr:    errors.New("stale token"),
			}
			m := NewManager(api, st, nil)
			st.onRead = func() { require.NoError(t, m.Login(ctx, "harry@hogwarts.edu", "alohomora")) }

			m.Initialize(ctx)

			s := m.State()
			assert.Equal(t, "fresh", s.Token)
			assert.True(t, s.Verified)
			assert.False(t, s.Verifying)
			assert.Zero(t, api.meCalls)
			tok, err := st.Get(ctx, store.KeyAuthToken)
			require.NoError(t, err)
			assert.Equal(t, "fresh", string(tok))
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newServerManager(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"token":"fresh","user":{"id":"u1","email":"harry@hogwarts.edu","role":"admin"}}`)) //nolint:errcheck
	})

	require.NoError(t, m.Login(ctx, "harry@hogwarts.edu", "alohomora"))

	s := m.State()
	assert.Equal(t, "fresh", s.Token)
	assert.True(t, s.Verified)
	assert.True(t, m.User().IsAdmin())

	tok, err := st.Get(ctx, store.KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(tok))
}

func TestLogin_BadCredentialsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newServerManager(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid email or password"}`)) //nolint:errcheck
	})

	forced := false
	m.Subscribe(func(ev Event) { forced = forced || ev.Forced })

	err := m.Login(ctx, "harry@hogwarts.edu", "wrongpass")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", client.Message(err))
	assert.False(t, m.IsAuthenticated())
	assert.False(t, forced, "bad credentials must not look like a forced sign-out")
	_, err = st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{loginRes: &client.LoginResult{Token: "first", User: domain.User{ID: "u1"}}}
	m := NewManager(api, store.NewMemoryStore(), nil)
	require.NoError(t, m.Login(ctx, "a@b.co", "secret1"))

	api.loginRes, api.loginErr = nil, errors.New("boom")
	require.Error(t, m.Login(ctx, "a@b.co", "secret1"))
	assert.Equal(t, "first", m.Token())
}

func TestLogin_ValidationSkipsNetwork(t *testing.T) {
	calls := 0
	m, _, _ := newServerManager(t, func(http.ResponseWriter, *http.Request) { calls++ })

	err := m.Login(context.Background(), "not-an-email", "123")
	assert.ErrorIs(t, err, validate.ErrValidation)
	assert.Zero(t, calls)
}

// failingStore fails Set for one key.
type failingStore struct {
	*store.MemoryStore
	failKey string
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestLogin_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	st := &failingStore{MemoryStore: store.NewMemoryStore(), failKey: store.KeyAuthUser}
	api := &fakeAPI{loginRes: &client.LoginResult{Token: "fresh", User: domain.User{ID: "u1"}}}
	m := NewManager(api, st, nil)

	err := m.Login(ctx, "harry@hogwarts.edu", "alohomora")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	_, err = st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound, "token write must be rolled back")
}

func TestRegister_DoesNotSignIn(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, store.NewMemoryStore(), nil)

	msg, err := m.Register(context.Background(), client.RegisterRequest{
		Email: "neville@hogwarts.edu", Password: "mimbulus", Username: "neville",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	assert.False(t, m.IsAuthenticated())

	_, err = m.Register(context.Background(), client.RegisterRequest{Email: "bad", Password: "x"})
	assert.ErrorIs(t, err, validate.ErrValidation)
	assert.Equal(t, 1, api.regCalls)
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{loginRes: &client.LoginResult{Token: "t", User: domain.User{ID: "u1"}}}
	st := store.NewMemoryStore()
	m := NewManager(api, st, nil)
	require.NoError(t, m.Login(ctx, "a@b.co", "secret1"))

	events := 0
	m.Subscribe(func(Event) { events++ })

	require.NoError(t, m.Logout())
	require.NoError(t, m.Logout())

	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Equal(t, 1, events)
	_, err := st.Get(ctx, store.KeyAuthUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnauthorizedForcesLogout(t *testing.T) {
	ctx := context.Background()
	m, st, c := newServerManager(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			w.Write([]byte(`{"token":"t1","user":{"id":"u1"}}`)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(t, m.Login(ctx, "harry@hogwarts.edu", "alohomora"))

	var got []Event
	cancel := m.Subscribe(func(ev Event) { got = append(got, ev) })
	defer cancel()

	_, err := c.ListTransactions(ctx, 1, 10)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	require.Len(t, got, 1)
	assert.True(t, got[0].Forced)
	assert.False(t, got[0].State.Authenticated())
	_, err = st.Get(ctx, store.KeyAuthToken)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A second 401 after the session is gone does not emit again.
	_, _ = c.ListTransactions(ctx, 1, 10)
	assert.Len(t, got, 1)
}

func TestSubscribeCancel(t *testing.T) {
	api := &fakeAPI{loginRes: &client.LoginResult{Token: "t", User: domain.User{ID: "u1"}}}
	m := NewManager(api, store.NewMemoryStore(), nil)

	n := 0
	cancel := m.Subscribe(func(Event) { n++ })
	cancel()
	cancel()

	require.NoError(t, m.Login(context.Background(), "a@b.co", "secret1"))
	assert.Zero(t, n)
}

func TestStateReturnsCopy(t *testing.T) {
	api := &fakeAPI{loginRes: &client.LoginResult{Token: "t", User: domain.User{ID: "u1", Username: "harry"}}}
	m := NewManager(api, store.NewMemoryStore(), nil)
	require.NoError(t, m.Login(context.Background(), "a@b.co", "secret1"))

	m.User().Username = "tom"
	assert.Equal(t, "harry", m.User().Username)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	assert.False(t, tokenExpired(signedToken(t, now.Add(time.Minute)), now))
	assert.False(t, tokenExpired("not-a-jwt", now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, tokenExpired(noExp, now))
}
