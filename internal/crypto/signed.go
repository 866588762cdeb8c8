package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignValue appends an HMAC-SHA256 signature to a value so it can round-trip
// through the browser without being tampered with. Format: value.signature
func SignValue(value string, key []byte) string {
	return value + "." + signData(value, key)
}

// UnsignValue validates a signed value and returns the original payload.
// The bool is false if the signature is missing or does not verify.
func UnsignValue(signed string, key []byte) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx < 0 {
		return "", false
	}
	value, signature := signed[:idx], signed[idx+1:]

	expected := signData(value, key)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}
	return value, true
}

func signData(data string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
