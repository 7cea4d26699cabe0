package transcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrBadSignature = errors.New("transcode: callback signature mismatch")

// VerifySignature checks a callback's signature header against the raw body.
// The header carries a unix timestamp and one or more v1 digests, e.g.
// "t=1712345678,v1=abc...". Each digest is HMAC-SHA256 over "timestamp.body"
// keyed with the shared webhook secret; any matching v1 digest accepts the
// callback.
func VerifySignature(header string, body []byte, secret string) error {
	var timestamp string
	var digests []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			digests = append(digests, value)
		}
	}
	if timestamp == "" || len(digests) == 0 {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, digest := range digests {
		if hmac.Equal([]byte(expected), []byte(digest)) {
			return nil
		}
	}
	return ErrBadSignature
}
