// Package signature authenticates processor callbacks. The processor signs
// every notification with hex(SHA-512(payload + app key)); anything that does
// not verify is treated as tampered and must not be processed.
package signature

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Compute returns the hex-encoded SHA-512 digest of payload + key.
func Compute(payload []byte, key string) string {
	h := sha512.New()
	h.Write(payload)
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a supplied signature against the raw payload bytes using a
// constant-time comparison. Empty payloads or signatures fail closed, as does
// an empty key: the wrong environment key is indistinguishable from
// tampering and there is no fallback.
func Verify(rawBody []byte, supplied, key string) bool {
	if len(rawBody) == 0 || supplied == "" || key == "" {
		return false
	}

	expected := Compute(sanitize(rawBody), key)
	return subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(supplied)),
		[]byte(expected),
	) == 1
}

// sanitize normalizes escaped JSON. Depending on the transport hop the body
// may arrive double-encoded, so the escapes the processor hashed over have
// to be collapsed before recomputing the digest.
func sanitize(body []byte) []byte {
	s := string(body)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\/`, `/`)
	s = strings.ReplaceAll(s, `\\\\`, `\\`)
	return []byte(s)
}

// SignatureParam is the query parameter and HTTP header the processor uses
// to carry the signature.
const SignatureParam = "X-GP-Signature"

// CanonicalQuery builds the signature base for query-string callbacks: the
// signature parameter is removed, remaining keys are sorted, and decoded
// key=value pairs are joined with "&".
func CanonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == SignatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			pairs = append(pairs, k+"="+v)
		}
	}
	return strings.Join(pairs, "&")
}

// VerifyQuery authenticates a query-string callback: the supplied signature
// is taken from the query itself and checked over the canonicalized rest.
func VerifyQuery(values url.Values, key string) bool {
	supplied := values.Get(SignatureParam)
	return Verify([]byte(CanonicalQuery(values)), supplied, key)
}
