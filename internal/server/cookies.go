package server

import (
	"crypto/rand"
	"net/http"

	"github.com/gorilla/securecookie"
)

const sessionCookieName = "rdash_sess"

// sessionCookie is what the browser carries: the opaque session ID and
// nothing else. Credentials never enter the cookie.
type sessionCookie struct {
	ID string
}

type cookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// newCookieCodec builds the securecookie codec. Empty keys get random
// ones, which signs existing cookies out across a daemon restart.
func newCookieCodec(hashKey, blockKey []byte, secure bool) *cookieCodec {
	if len(hashKey) == 0 {
		hashKey = randomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = randomKey(32)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(86400)
	return &cookieCodec{sc: sc, secure: secure}
}

func randomKey(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func (c *cookieCodec) write(w http.ResponseWriter, sessionID string) error {
	val, err := c.sc.Encode(sessionCookieName, sessionCookie{ID: sessionID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
	return nil
}

func (c *cookieCodec) read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	var v sessionCookie
	if err := c.sc.Decode(sessionCookieName, ck.Value, &v); err != nil {
		return "", false
	}
	return v.ID, v.ID != ""
}

func (c *cookieCodec) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}
