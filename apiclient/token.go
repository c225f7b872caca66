package apiclient

import (
	"context"
	"errors"
	"strings"

	"github.com/giihelpdesk/helpdesk-client/session"
)

// Token returns the held bearer token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsAuthenticated reports whether a token is held and has not expired.
// Only JWTs carry a readable expiry; opaque tokens are trusted until the
// server answers 401.
func (c *Client) IsAuthenticated() bool {
	token := c.Token()
	return token != "" && !session.TokenExpired(token, c.now())
}

// SetToken holds token and merges it into the stored Session, keeping the
// stored email, domain, subscription and creation time. Blank tokens are
// rejected with KindInvalidToken and leave everything unchanged. The held
// token only changes once the Session is saved.
func (c *Client) SetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		c.logger.WithContext(ctx).Warn().Msg("Rejected blank token")
		return newFailure(KindInvalidToken, MessageInvalidToken, 0, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.loadForUpdate(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		stored = &session.Session{}
	}
	stored.Token = token
	stored.Touch(c.now().UTC())
	if err := c.save(ctx, stored); err != nil {
		return err
	}
	c.token = token
	return nil
}

// ClearToken drops the held token and deletes the stored Session.
func (c *Client) ClearToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	if err := c.store.Delete(ctx); err != nil {
		return newFailure(KindStorage, "failed to clear session", 0, err)
	}
	return nil
}

// Logout clears the session and leaves the protected area.
func (c *Client) Logout(ctx context.Context) error {
	err := c.ClearToken(ctx)
	c.redirectIfProtected()
	return err
}

// Session returns the stored record, or session.ErrNotFound.
func (c *Client) Session(ctx context.Context) (*session.Session, error) {
	return c.store.Load(ctx)
}

// signIn replaces the stored Session with s and holds its token once saved.
func (c *Client) signIn(ctx context.Context, s *session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.save(ctx, s); err != nil {
		return err
	}
	c.token = s.Token
	return nil
}

// refresh applies fn to the stored Session, if one exists, and saves it.
func (c *Client) refresh(ctx context.Context, fn func(s *session.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.loadForUpdate(ctx)
	if err != nil {
		c.logger.WithContext(ctx).Warn().Err(err).Msg("Skipping session refresh")
		return
	}
	if stored == nil {
		return
	}
	fn(stored)
	stored.Touch(c.now().UTC())
	if err := c.save(ctx, stored); err != nil {
		c.logger.WithContext(ctx).Warn().Err(err).Msg("Failed to save refreshed session")
	}
}

// loadForUpdate returns nil without error when the slot is empty or unreadable.
func (c *Client) loadForUpdate(ctx context.Context) (*session.Session, error) {
	stored, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorrupt):
		return nil, nil
	case err != nil:
		return nil, newFailure(KindStorage, "failed to read session", 0, err)
	}
	return stored, nil
}

func (c *Client) save(ctx context.Context, s *session.Session) error {
	if err := c.store.Save(ctx, s); err != nil {
		return newFailure(KindStorage, "failed to save session", 0, err)
	}
	return nil
}
