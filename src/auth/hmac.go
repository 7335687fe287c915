package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platefeed/realtime/src/types"
)

var (
	// ErrInvalidToken indicates the token failed signature checks or was malformed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken signals that the token's expiry is in the past.
	ErrExpiredToken = errors.New("token expired")
)

// Verifier validates a bearer credential and resolves the identity behind it.
type Verifier interface {
	Verify(token string) (types.Identity, error)
}

// Claims is the token payload used for the WebSocket handshake.
type Claims struct {
	Subject   string   `json:"sub"`
	Roles     []string `json:"roles,omitempty"`
	ExpiresAt int64    `json:"exp"`
	IssuedAt  int64    `json:"iat,omitempty"`
}

// HMACVerifier validates compact JWT-style tokens signed with HS256.
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
	leeway time.Duration
}

// NewHMACVerifier constructs a verifier for the shared secret and clock skew allowance.
func NewHMACVerifier(secret string, leeway time.Duration) (*HMACVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("hmac secret must not be empty")
	}
	if leeway < 0 {
		leeway = 0
	}
	return &HMACVerifier{secret: []byte(secret), now: time.Now, leeway: leeway}, nil
}

// WithClock overrides the verifier clock, enabling deterministic unit tests.
func (v *HMACVerifier) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	v.now = clock
}

// Verify parses the token, validates signature and expiry, and returns the identity.
func (v *HMACVerifier) Verify(token string) (types.Identity, error) {
	if v == nil || len(v.secret) == 0 {
		return types.Identity{}, errors.New("verifier not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return types.Identity{}, ErrInvalidToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return types.Identity{}, ErrInvalidToken
	}

	headerBytes, err := decodeSegment(parts[0])
	if err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	var header struct {
		Algorithm string `json:"alg"`
		Type      string `json:"typ"`
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	if header.Algorithm != "HS256" {
		return types.Identity{}, fmt.Errorf("%w: unexpected algorithm %q", ErrInvalidToken, header.Algorithm)
	}

	expectedSig := v.sign([]byte(parts[0] + "." + parts[1]))
	signatureBytes, err := decodeSegment(parts[2])
	if err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	if !hmac.Equal(signatureBytes, expectedSig) {
		return types.Identity{}, ErrInvalidToken
	}

	payloadBytes, err := decodeSegment(parts[1])
	if err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return types.Identity{}, ErrInvalidToken
	}
	if claims.ExpiresAt <= 0 {
		return types.Identity{}, ErrInvalidToken
	}
	if time.Unix(claims.ExpiresAt, 0).Add(v.leeway).Before(v.now()) {
		return types.Identity{}, ErrExpiredToken
	}

	return types.Identity{UserID: claims.Subject, Roles: claims.Roles}, nil
}

// Sign mints a compact HS256 token for the given claims. Used by tests and
// operational tooling; production tokens come from the platform's auth service.
func Sign(secret string, claims Claims) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("hmac secret must not be empty")
	}
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	signing := encodeSegment(headerBytes) + "." + encodeSegment(payloadBytes)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + encodeSegment(mac.Sum(nil)), nil
}

func (v *HMACVerifier) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(segment)
}

func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
