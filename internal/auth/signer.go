package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"cfkit/pkg/core"
)

// Header names carried by every authenticated request. The exchange
// matches them case-sensitively.
const (
	HeaderAPIKey  = "APIKey"
	HeaderNonce   = "Nonce"
	HeaderAuthent = "Authent"
)

// DecodeSecret decodes a base64 API secret into raw HMAC key bytes.
// The returned error never includes the secret itself.
func DecodeSecret(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, core.NewConfigurationError("auth.DecodeSecret", "api secret is not valid base64", err)
	}
	return key, nil
}

// Sign returns the Authent value for a request. The preimage is
// body || nonce || path, hashed with SHA-256, then authenticated with
// HMAC-SHA512 under the decoded secret and base64 encoded.
func Sign(path, body string, nonce int64, secret string) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return sign(path, body, nonce, key), nil
}

func sign(path, body string, nonce int64, key []byte) string {
	digest := sha256.Sum256([]byte(body + FormatNonce(nonce) + path))
	mac := hmac.New(sha512.New, key)
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Signer signs requests for one API key. The secret is decoded once at
// construction and is read-only afterwards, so a Signer is safe for
// concurrent use.
type Signer struct {
	apiKey string
	key    []byte
}

// NewSigner decodes secret and returns a Signer for apiKey.
// A malformed secret is reported as a configuration error.
func NewSigner(apiKey, secret string) (*Signer, error) {
	if apiKey == "" {
		return nil, core.NewConfigurationError("auth.NewSigner", "api key is empty", nil)
	}
	if secret == "" {
		return nil, core.NewConfigurationError("auth.NewSigner", "api secret is empty", nil)
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}
	return &Signer{apiKey: apiKey, key: key}, nil
}

// APIKey returns the public key sent in the APIKey header.
func (s *Signer) APIKey() string {
	return s.apiKey
}

// Sign builds the signed form of one request.
func (s *Signer) Sign(path, body string, nonce int64) *SignedRequest {
	return &SignedRequest{
		Path:    path,
		Body:    body,
		Nonce:   nonce,
		APIKey:  s.apiKey,
		Authent: sign(path, body, nonce, s.key),
	}
}

// String masks the key and never prints the secret.
func (s *Signer) String() string {
	return fmt.Sprintf("Signer{APIKey:%s}", core.MaskKey(s.apiKey))
}

// SignedRequest is the result of signing one request. It is used for a
// single exchange and then discarded.
type SignedRequest struct {
	Path    string
	Body    string
	Nonce   int64
	APIKey  string
	Authent string
}

// Headers returns the three authentication headers.
func (r *SignedRequest) Headers() map[string]string {
	return map[string]string{
		HeaderAPIKey:  r.APIKey,
		HeaderNonce:   FormatNonce(r.Nonce),
		HeaderAuthent: r.Authent,
	}
}
