package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// DecodeKey decodes a base64 encoded 32-byte signing key.
func DecodeKey(value string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(key) != 32 {
		return nil, errors.New("invalid signing key")
	}
	return key, nil
}

// SignReference returns the hex HMAC-SHA256 of an order reference.
func SignReference(reference string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(reference))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyReference reports whether signature matches the reference, in constant time.
func VerifyReference(reference, signature string, key []byte) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(reference))
	return hmac.Equal(got, mac.Sum(nil))
}
