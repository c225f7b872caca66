package apiclient

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"

	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/session"
	"github.com/giihelpdesk/helpdesk-client/session/filestore"
	"github.com/giihelpdesk/helpdesk-client/session/memstore"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")}, nil)
	require.NoError(t, err)
	token, err := jwt.Signed(signer).Claims(jwt.Claims{Subject: "a@b.com", Expiry: jwt.NewNumericDate(exp)}).CompactSerialize()
	require.NoError(t, err)
	return token
}

func TestSetTokenRejectsBlank(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`),
		withSession(&session.Session{Token: "held", Email: "a@b.com"}))

	for _, token := range []string{"", "   ", "\t\n"} {
		err := f.client.SetToken(context.Background(), token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
		failure, ok := AsFailure(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidToken, failure.Kind)

		assert.Equal(t, "held", f.client.Token())
		assert.Equal(t, "held", f.stored(t).Token)
	}
}

func TestSetTokenPreservesStoredFields(t *testing.T) {
	created := testNow.Add(-48 * time.Hour)
	f := newFixture(t, respond(http.StatusOK, `{}`), withSession(&session.Session{
		Token:        "old",
		Email:        "a@b.com",
		Domain:       "b.com",
		CreatedAt:    created,
		UpdatedAt:    created,
		Subscription: session.PlanSubscription("pro"),
	}))

	require.NoError(t, f.client.SetToken(context.Background(), "abc"))
	assert.Equal(t, "abc", f.client.Token())

	s := f.stored(t)
	assert.Equal(t, "abc", s.Token)
	assert.Equal(t, "a@b.com", s.Email)
	assert.Equal(t, "b.com", s.Domain)
	assert.Equal(t, "pro", s.Subscription.Plan())
	assert.True(t, s.CreatedAt.Equal(created))
	assert.True(t, s.UpdatedAt.Equal(testNow))
}

func TestSetTokenCreatesSession(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`))
	require.NoError(t, f.client.SetToken(context.Background(), "abc"))

	s := f.stored(t)
	assert.Equal(t, "abc", s.Token)
	assert.True(t, s.CreatedAt.Equal(testNow))
	assert.Nil(t, s.Subscription)
	assert.True(t, f.client.IsAuthenticated())
}

func TestClearTokenAndLogout(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`), withSession(&session.Session{Token: "t1"}))
	require.True(t, f.client.IsAuthenticated())

	require.NoError(t, f.client.ClearToken(context.Background()))
	assert.False(t, f.client.IsAuthenticated())
	_, err := f.client.Session(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, f.nav.redirects())

	require.NoError(t, f.client.SetToken(context.Background(), "t2"))
	f.nav.path = "/account/settings.html"
	require.NoError(t, f.client.Logout(context.Background()))
	assert.Empty(t, f.client.Token())
	assert.Equal(t, []string{"/auth/login.html"}, f.nav.redirects())

	require.NoError(t, f.client.Logout(context.Background()), "logging out twice is fine")
}

func TestIsAuthenticatedChecksJWTExpiry(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`))

	require.NoError(t, f.client.SetToken(context.Background(), signedJWT(t, testNow.Add(time.Hour))))
	assert.True(t, f.client.IsAuthenticated())

	require.NoError(t, f.client.SetToken(context.Background(), signedJWT(t, testNow.Add(-time.Minute))))
	assert.False(t, f.client.IsAuthenticated())
	assert.NotEmpty(t, f.client.Token(), "expiry does not drop the held token")

	require.NoError(t, f.client.SetToken(context.Background(), "opaque-session-token"))
	assert.True(t, f.client.IsAuthenticated())
}

func TestNewClearsExpiredStoredToken(t *testing.T) {
	expired := signedJWT(t, testNow.Add(-time.Hour))
	f := newFixture(t, respond(http.StatusOK, `{}`), withSession(&session.Session{Token: expired, Email: "a@b.com"}))

	assert.Empty(t, f.client.Token())
	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNewRestoresValidStoredToken(t *testing.T) {
	valid := signedJWT(t, testNow.Add(time.Hour))
	f := newFixture(t, respond(http.StatusOK, `{}`), withSession(&session.Session{Token: valid, Email: "a@b.com"}))
	assert.Equal(t, valid, f.client.Token())
	assert.True(t, f.client.IsAuthenticated())
}

func TestNewDiscardsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := filestore.New(path)
	require.NoError(t, err)

	c, err := New(context.Background(), Options{API: config.APIConfig{BaseURL: "http://localhost:8088"}, Store: store})
	require.NoError(t, err)
	assert.Empty(t, c.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// failingSaveStore refuses every write.
type failingSaveStore struct {
	*memstore.Store
}

var errDiskFull = errors.New("disk full")

func (s failingSaveStore) Save(context.Context, *session.Session) error { return errDiskFull }

func withFailingSave(opts *Options, store *memstore.Store) {
	opts.Store = failingSaveStore{Store: store}
}

func TestSetTokenKeepsPreviousTokenWhenSaveFails(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{"success":true}`),
		withSession(&session.Session{Token: "old-token"}), withFailingSave)
	require.Equal(t, "old-token", f.client.Token())

	err := f.client.SetToken(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindStorage, failure.Kind)

	assert.Equal(t, "old-token", f.client.Token())
	assert.Equal(t, "old-token", f.stored(t).Token)
}

func TestLoginLeavesClientSignedOutWhenSaveFails(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{"success":true,"data":{"token":"tok","user":{"email":"a@b.com"}}}`), withFailingSave)

	out := f.client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "pw"})
	assert.False(t, out.Success)
	assert.Equal(t, KindStorage, out.Kind())
	assert.Empty(t, f.client.Token())
	assert.False(t, f.client.IsAuthenticated())
	assert.Equal(t, TitleAPIError, f.lastNotice(t).Title)
}
