package signature_test

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/commercekit/globalpay-reconciler/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body, key string) string {
	sum := sha512.Sum512([]byte(body + key))
	return hex.EncodeToString(sum[:])
}

func TestVerify_RoundTrip(t *testing.T) {
	body := `{"status":"CAPTURED","id":"TXN123"}`
	key := "k1"

	assert.True(t, signature.Verify([]byte(body), sign(body, key), key))
}

func TestVerify_FlippedBodyByte(t *testing.T) {
	body := `{"status":"CAPTURED","id":"TXN123"}`
	key := "k1"
	sig := sign(body, key)

	tampered := []byte(body)
	tampered[10] ^= 0x01

	assert.False(t, signature.Verify(tampered, sig, key))
}

func TestVerify_FlippedSignatureByte(t *testing.T) {
	body := `{"status":"CAPTURED","id":"TXN123"}`
	key := "k1"
	sig := []byte(sign(body, key))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	assert.False(t, signature.Verify([]byte(body), string(sig), key))
}

func TestVerify_WrongKey(t *testing.T) {
	body := `{"status":"CAPTURED"}`

	assert.False(t, signature.Verify([]byte(body), sign(body, "sandbox-key"), "production-key"))
}

func TestVerify_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		sig  string
		key  string
	}{
		{"empty body", nil, sign("", "k1"), "k1"},
		{"empty signature", []byte(`{}`), "", "k1"},
		{"empty key", []byte(`{}`), sign("{}", ""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, signature.Verify(tt.body, tt.sig, tt.key))
		})
	}
}

func TestVerify_DoubleEncodedBody(t *testing.T) {
	// The processor hashes over the unescaped form; a transport hop may
	// deliver the body with escaped quotes and slashes.
	clean := `{"link":"https://processor.example/t/1","status":"CAPTURED"}`
	escaped := `{\"link\":\"https:\/\/processor.example\/t\/1\",\"status\":\"CAPTURED\"}`
	key := "k1"

	assert.True(t, signature.Verify([]byte(escaped), sign(clean, key), key))
}

func TestVerify_CaseInsensitiveHex(t *testing.T) {
	body := `{"id":"TXN1"}`
	key := "k1"
	upper := make([]byte, 0)
	for _, c := range sign(body, key) {
		if c >= 'a' && c <= 'f' {
			c = c - 'a' + 'A'
		}
		upper = append(upper, byte(c))
	}

	assert.True(t, signature.Verify([]byte(body), string(upper), key))
}

func TestCanonicalQuery(t *testing.T) {
	values := url.Values{}
	values.Set("status", "CAPTURED")
	values.Set("id", "TXN9")
	values.Set("order_id", "42")
	values.Set(signature.SignatureParam, "whatever")

	// Signature param excluded, keys sorted.
	assert.Equal(t, "id=TXN9&order_id=42&status=CAPTURED", signature.CanonicalQuery(values))
}

func TestVerifyQuery(t *testing.T) {
	key := "k1"

	values := url.Values{}
	values.Set("id", "TXN9")
	values.Set("status", "CAPTURED")
	values.Set(signature.SignatureParam, sign("id=TXN9&status=CAPTURED", key))

	require.True(t, signature.VerifyQuery(values, key))

	values.Set("status", "DECLINED")
	assert.False(t, signature.VerifyQuery(values, key), "tampered query must not verify")
}

func TestVerifyQuery_MissingSignature(t *testing.T) {
	values := url.Values{}
	values.Set("id", "TXN9")

	assert.False(t, signature.VerifyQuery(values, "k1"))
}
