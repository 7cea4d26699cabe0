package transcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"video.asset.ready"}`)
	secret := "whsec_test"
	header := "t=1712345678,v1=" + sign("1712345678", body, secret)

	assert.NoError(t, VerifySignature(header, body, secret))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	header := "t=1712345678,v1=" + sign("1712345678", body, "other-secret")
	assert.ErrorIs(t, VerifySignature(header, body, "whsec_test"), ErrBadSignature)
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	secret := "whsec_test"
	header := "t=1712345678,v1=" + sign("1712345678", []byte(`{"a":1}`), secret)
	assert.ErrorIs(t, VerifySignature(header, []byte(`{"a":2}`), secret), ErrBadSignature)
}

func TestVerifySignatureTamperedTimestamp(t *testing.T) {
	body := []byte(`{}`)
	secret := "whsec_test"
	header := "t=9999999999,v1=" + sign("1712345678", body, secret)
	assert.ErrorIs(t, VerifySignature(header, body, secret), ErrBadSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	body := []byte(`{}`)
	for _, header := range []string{"", "garbage", "t=123", "v1=deadbeef", "t=,v1="} {
		assert.ErrorIs(t, VerifySignature(header, body, "s"), ErrBadSignature, "header=%q", header)
	}
}

// Senders include old digests during secret rotation; one match suffices.
func TestVerifySignatureMultipleDigests(t *testing.T) {
	body := []byte(`{}`)
	secret := "whsec_new"
	stale := sign("1712345678", body, "whsec_old")
	good := sign("1712345678", body, secret)
	header := "t=1712345678,v1=" + stale + ",v1=" + good

	assert.NoError(t, VerifySignature(header, body, secret))
}
