package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adsync/pkg/webhook"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	v := webhook.NewVerifier("app-secret", "verify-token")
	body := []byte(`{"object":"ad_account","entry":[]}`)

	assert.NoError(t, v.VerifySignature(body, sign("app-secret", body)))

	assert.ErrorIs(t, v.VerifySignature(body, sign("wrong-secret", body)), webhook.ErrInvalidSignature)
	assert.ErrorIs(t, v.VerifySignature([]byte("tampered"), sign("app-secret", body)), webhook.ErrInvalidSignature)
	assert.ErrorIs(t, v.VerifySignature(body, "sha1=deadbeef"), webhook.ErrInvalidSignature, "only sha256 signatures are accepted")
	assert.ErrorIs(t, v.VerifySignature(body, "sha256=not-hex"), webhook.ErrInvalidSignature)
	assert.ErrorIs(t, v.VerifySignature(body, ""), webhook.ErrInvalidSignature)
}

func TestVerifyChallenge(t *testing.T) {
	v := webhook.NewVerifier("app-secret", "verify-token")

	echo, err := v.VerifyChallenge("subscribe", "verify-token", "challenge-1234")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1234", echo)

	_, err = v.VerifyChallenge("subscribe", "bad-token", "challenge-1234")
	assert.ErrorIs(t, err, webhook.ErrVerifyTokenMismatch)

	_, err = v.VerifyChallenge("unsubscribe", "verify-token", "challenge-1234")
	assert.ErrorIs(t, err, webhook.ErrVerifyTokenMismatch)

	_, err = v.VerifyChallenge("subscribe", "verify-token", "")
	assert.ErrorIs(t, err, webhook.ErrVerifyTokenMismatch)
}

func TestParseNotification(t *testing.T) {
	body := []byte(`{
		"object": "ad_account",
		"entry": [
			{"id": "act_1", "time": 1756600000, "changes": [
				{"field": "campaigns", "value": {"campaign_id": "c1"}}
			]}
		]
	}`)

	n, err := webhook.ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "ad_account", n.Object)
	require.Len(t, n.Entry, 1)
	require.Len(t, n.Entry[0].Changes, 1)
	assert.Equal(t, "campaigns", n.Entry[0].Changes[0].Field)
}
