package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Codec signs and verifies access tokens with a shared HMAC secret
// (HS256). Claims are readable by anyone holding a token; the signature
// only makes them tamper-evident. Minting and verification are pure and
// safe for concurrent use.
type Codec struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewCodec builds a Codec around the environment-provided signing secret,
// issuer and audience. The values are consumed verbatim.
func NewCodec(secret []byte, issuer string, audience []string) *Codec {
	return &Codec{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
	}
}

// Issue signs an access token for the given identity with an absolute
// expiry of now+ttl.
func (c *Codec) Issue(
	subject, email, role, displayName string,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	claims := NewAccessClaims(subject, email, role, displayName, ttl, c.issuer, c.audience, now)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Verify checks the signature, expiry window, issuer and audience, and
// returns the claims on success. Tampered and expired tokens both fail;
// the distinct sentinel errors only matter for logging.
func (c *Codec) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSig
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(c.audience); err != nil {
		return Claims{}, err
	}
	if err := claims.validateShape(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

// Decode extracts claims without enforcing the signature or the expiry
// window. Clients use it to render an optimistic identity from a cached
// token before an authoritative round trip; it must never gate access.
// A structurally broken token or one missing a minted claim returns
// ErrMalformed.
func Decode(token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrMalformed
	}

	if err := claims.validateShape(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
