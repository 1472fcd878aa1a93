package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// SessionCookie carries the signed user id between requests.
const SessionCookie = "session"

// Sign creates a signed cookie value in the format "value|signature".
func Sign(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	signature := mac.Sum(nil)
	return fmt.Sprintf("%s|%s", base64.URLEncoding.EncodeToString([]byte(value)), base64.URLEncoding.EncodeToString(signature))
}

// Verify checks the signature and returns the original value.
func Verify(secret, signedValue string) (string, error) {
	parts := strings.Split(signedValue, "|")
	if len(parts) != 2 {
		return "", errors.New("invalid cookie format")
	}

	valueBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid value encoding")
	}
	value := string(valueBytes)

	signature, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("invalid signature encoding")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	expected := mac.Sum(nil)

	if !hmac.Equal(signature, expected) {
		return "", errors.New("invalid signature")
	}

	return value, nil
}

// SetSession writes the signed session cookie for userID.
func SetSession(w http.ResponseWriter, secret string, userID int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    Sign(secret, strconv.Itoa(userID)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID extracts and verifies the session cookie, returning the user id.
func UserID(r *http.Request, secret string) (int, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return 0, err
	}
	value, err := Verify(secret, cookie.Value)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}
