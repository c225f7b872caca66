package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/logger"
	"github.com/giihelpdesk/helpdesk-client/notify"
	"github.com/giihelpdesk/helpdesk-client/session"
	"github.com/giihelpdesk/helpdesk-client/session/memstore"
)

const testRetryDelay = 100 * time.Millisecond

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

type fakeNavigator struct {
	mu         sync.Mutex
	path       string
	redirected []string
}

func (n *fakeNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *fakeNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirected = append(n.redirected, path)
}

func (n *fakeNavigator) redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.redirected...)
}

type fixture struct {
	client   *Client
	server   *httptest.Server
	store    *memstore.Store
	notices  *notify.Recorder
	nav      *fakeNavigator
	requests atomic.Int32

	mu     sync.Mutex
	delays []time.Duration
}

func (f *fixture) sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

func (f *fixture) lastNotice(t *testing.T) notify.Notice {
	t.Helper()
	n, ok := f.notices.Last()
	require.True(t, ok, "expected a notice")
	return n
}

func (f *fixture) stored(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return s
}

// newFixture starts a server with handler and a client pointed at it.
// mutate may adjust the options and pre-populate the store before New runs.
func newFixture(t *testing.T, handler http.HandlerFunc, mutate ...func(*Options, *memstore.Store)) *fixture {
	t.Helper()

	f := &fixture{
		notices: &notify.Recorder{},
		nav:     &fakeNavigator{path: "/"},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	store, err := memstore.New(session.DefaultKey)
	require.NoError(t, err)
	f.store = store

	opts := Options{
		API: config.APIConfig{
			BaseURL:       f.server.URL,
			Timeout:       2 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    testRetryDelay,
		},
		Navigation: config.NavigationConfig{ProtectedPrefix: "/account/", LoginPath: "/auth/login.html"},
		Store:      store,
		Notifier:   f.notices,
		Navigator:  f.nav,
		Logger:     logger.Nop(),
		Now:        func() time.Time { return testNow },
		Sleep: func(ctx context.Context, d time.Duration) error {
			f.mu.Lock()
			f.delays = append(f.delays, d)
			f.mu.Unlock()
			return ctx.Err()
		},
	}
	for _, m := range mutate {
		m(&opts, store)
	}

	f.client, err = New(context.Background(), opts)
	require.NoError(t, err)
	return f
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func withSession(s *session.Session) func(*Options, *memstore.Store) {
	return func(_ *Options, store *memstore.Store) {
		if err := store.Save(context.Background(), s); err != nil {
			panic(err)
		}
	}
}
