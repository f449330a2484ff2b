package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	// CSRFSessionKey names the session value holding the token.
	CSRFSessionKey = "csrf_token"
	// CSRFHeader is the request header the SPA echoes the token in.
	CSRFHeader = "X-CSRF-Token"
)

var errNoSession = errors.New("csrf: session missing")

// CSRFManager binds anti-forgery tokens to sessions.
type CSRFManager struct {
	key []byte
}

// NewCSRFManager returns a manager signing tokens with secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{key: []byte(secret)}
}

// Token returns the session token, minting one on first use.
func (m *CSRFManager) Token(sess *Session) (string, error) {
	if sess == nil {
		return "", errNoSession
	}
	if tok := sess.Get(CSRFSessionKey); tok != "" {
		return tok, nil
	}
	return m.Rotate(sess)
}

// Rotate replaces the session token. Login calls it after Renew so a
// token observed before authentication stops working.
func (m *CSRFManager) Rotate(sess *Session) (string, error) {
	if sess == nil {
		return "", errNoSession
	}
	tok, err := m.mint(sess.ID)
	if err != nil {
		return "", err
	}
	sess.Set(CSRFSessionKey, tok)
	return tok, nil
}

// Verify checks the presented token against the session in constant time.
func (m *CSRFManager) Verify(sess *Session, presented string) error {
	if sess == nil || presented == "" {
		return ErrCSRFTokenMissing
	}
	want := sess.Get(CSRFSessionKey)
	if want == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(want), []byte(presented)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) mint(sessionID string) (string, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, m.key)
	h.Write([]byte(sessionID))
	h.Write(nonce[:])
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
