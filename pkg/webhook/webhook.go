// Package webhook validates Graph API webhook deliveries: the GET
// subscription handshake and the signed POST notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// SignatureHeader carries the payload signature on POST deliveries
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

var (
	// ErrInvalidSignature means the payload signature did not verify
	ErrInvalidSignature = errors.New("webhook: invalid signature")

	// ErrVerifyTokenMismatch means the handshake carried the wrong token
	ErrVerifyTokenMismatch = errors.New("webhook: verify token mismatch")
)

// Verifier checks delivery authenticity
type Verifier struct {
	appSecret   string
	verifyToken string
}

// NewVerifier creates a verifier from the app secret and the subscription
// verify token
func NewVerifier(appSecret, verifyToken string) *Verifier {
	return &Verifier{
		appSecret:   appSecret,
		verifyToken: verifyToken,
	}
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. Comparison is constant time.
func (v *Verifier) VerifySignature(body []byte, header string) error {
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}

	sent, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(v.appSecret))
	mac.Write(body)

	if !hmac.Equal(sent, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyChallenge handles the GET subscription handshake: when the mode and
// token match, the challenge string must be echoed back verbatim.
func (v *Verifier) VerifyChallenge(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || challenge == "" {
		return "", ErrVerifyTokenMismatch
	}
	if subtleEquals(token, v.verifyToken) {
		return challenge, nil
	}
	return "", ErrVerifyTokenMismatch
}

func subtleEquals(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// Notification is the decoded webhook payload
type Notification struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one changed object within a notification
type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// Change is one field change on an object
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// ParseNotification decodes a verified payload
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
