package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"order":{"id":"ext-1"}}`)
	signature := sign("topsecret", body)

	if !VerifySignature("topsecret", body, signature) {
		t.Error("valid signature rejected")
	}
	if !VerifySignature("topsecret", body, "sha256="+signature) {
		t.Error("valid prefixed signature rejected")
	}
}

func TestVerifySignature_Invalid(t *testing.T) {
	body := []byte(`{"order":{"id":"ext-1"}}`)

	cases := map[string]struct {
		secret    string
		body      []byte
		signature string
	}{
		"wrong secret":  {"other", body, sign("topsecret", body)},
		"tampered body": {"topsecret", []byte(`{"order":{"id":"ext-2"}}`), sign("topsecret", body)},
		"empty secret":  {"", body, sign("", body)},
		"empty header":  {"topsecret", body, ""},
		"not hex":       {"topsecret", body, "zzzz"},
	}
	for name, c := range cases {
		if VerifySignature(c.secret, c.body, c.signature) {
			t.Errorf("%s: signature accepted", name)
		}
	}
}
