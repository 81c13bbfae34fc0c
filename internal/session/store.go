// Package session wires Fiber's cookie sessions to a Redis-backed storage.
// The session carries the two pieces of short-lived server-held state this
// application needs: the pending CAPTCHA answer and the authenticated user id.
package session

import (
	"time"

	"pawhaven/internal/config"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// CookieName is the session cookie key.
	CookieName = "pawhaven_session"
	// Expiration bounds how long an idle session survives.
	Expiration = 24 * time.Hour

	// KeyUserID holds the authenticated user's id in session values.
	KeyUserID = "user_id"
	// KeyImageCode holds the expected CAPTCHA text for the next submit.
	KeyImageCode = "imagecode"
)

// NewStore creates the session store. When Redis is reachable the sessions
// live there and survive process restarts; otherwise Fiber's in-memory
// storage is used.
func NewStore(cfg *config.Config) *session.Store {
	conf := session.Config{
		Expiration:     Expiration,
		KeyLookup:      "cookie:" + CookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
	if storage := NewRedisStorage(cfg.RedisURL); storage != nil {
		conf.Storage = storage
	}
	return session.New(conf)
}

// UserID extracts the authenticated user id from a session, if any.
func UserID(sess *session.Session) (uint, bool) {
	v := sess.Get(KeyUserID)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// BindUser clears any prior session state and binds the session to the
// authenticated user's identity.
func BindUser(sess *session.Session, userID uint) error {
	if err := sess.Reset(); err != nil {
		return err
	}
	sess.Set(KeyUserID, userID)
	return sess.Save()
}

// ImageCode returns the pending CAPTCHA answer held by the session.
func ImageCode(sess *session.Session) string {
	if v, ok := sess.Get(KeyImageCode).(string); ok {
		return v
	}
	return ""
}

// SetImageCode stores the expected CAPTCHA text for the next submit.
func SetImageCode(sess *session.Session, code string) error {
	sess.Set(KeyImageCode, code)
	return sess.Save()
}

// Destroy drops all session state unconditionally.
func Destroy(sess *session.Session) error {
	return sess.Destroy()
}
