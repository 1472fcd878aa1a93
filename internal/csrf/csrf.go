package csrf

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/scraplink/chatcore/internal/crypto"
)

const (
	// CookieName is readable by client script; the client echoes the value
	// in HeaderName on every mutating request (double-submit).
	CookieName = "csrf_token"
	HeaderName = "X-CSRF-Token"

	TokenTTL = time.Hour

	nonceBytes = 16
)

// ErrInvalidToken is the single failure signal; callers reject the request
// with 403 and perform no mutation.
var ErrInvalidToken = errors.New("invalid or expired csrf token")

// Guard issues and validates stateless double-submit tokens of the form
// nonce:unixMillis:hmac, bound to a server secret. No server-side token
// store; expiry and integrity live in the token itself.
type Guard struct {
	secret string
}

func New(secret string) *Guard {
	return &Guard{secret: secret}
}

func (g *Guard) Issue() (string, error) {
	nonce, err := crypto.SecureToken(nonceBytes)
	if err != nil {
		return "", err
	}
	data := nonce + ":" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	return data + ":" + crypto.HMAC(data, g.secret), nil
}

func (g *Guard) Validate(token string) bool {
	if token == "" {
		return false
	}

	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return false
	}
	nonce, tsStr, mac := parts[0], parts[1], parts[2]

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return false
	}
	if time.Since(time.UnixMilli(ts)) > TokenTTL {
		return false
	}

	return crypto.VerifyHMAC(nonce+":"+tsStr, mac, g.secret)
}

// SetCookie issues a fresh token and sets it as a script-readable cookie.
func (g *Guard) SetCookie(w http.ResponseWriter) (string, error) {
	token, err := g.Issue()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: false, // the client script must read and echo it
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Check applies the double-submit rule to a single request: safe methods
// pass, mutating methods need a header token equal to the cookie token that
// also validates. Equality defeats cross-origin forgery (the attacker page
// cannot read the cookie); the HMAC defeats tampering and expiry bypass.
func (g *Guard) Check(r *http.Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	header := r.Header.Get(HeaderName)
	cookie, err := r.Cookie(CookieName)
	if err != nil || header == "" {
		return ErrInvalidToken
	}
	if header != cookie.Value {
		return ErrInvalidToken
	}
	if !g.Validate(header) {
		return ErrInvalidToken
	}
	return nil
}

// Protect is Check as mux middleware.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Check(r); err != nil {
			http.Error(w, "Invalid or expired CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
