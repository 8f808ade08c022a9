// Package auth provides JWT session tokens, password hashing, OAuth2
// providers, and the bearer-token middleware for the auth API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User logs in with email/password (POST /auth/login) OR completes an
//    OAuth2 flow (/auth/oauth2/{provider}/login → provider → callback)
// 2. Server resolves the account and issues a JWT whose subject is the
//    account EMAIL
// 3. The frontend stores the token and sends it on every API call as
//    "Authorization: Bearer <token>"
// 4. Middleware validates the JWT and puts the email in the request context
//
// WHY EMAIL AS THE SUBJECT?
// Email is the unique, immutable business key of an account here — every
// lookup the API performs afterwards is by email. Putting it in the "sub"
// claim means authenticated handlers never need a second mapping step.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"a@x.com","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server can verify the signature without any DB lookup — just the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation failure kinds.
//
// The codec distinguishes WHY a token was rejected (useful for logs and
// tests), but the API boundary collapses all four into a single 401 —
// a client gains nothing from knowing which check failed.
var (
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenInvalid     = errors.New("auth: invalid token")
	ErrTokenUnsupported = errors.New("auth: unsupported token")
	ErrMalformedClaims  = errors.New("auth: malformed token claims")
)

const tokenIssuer = "auth-backend"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens plus the
// configured token lifetime. The same secret must be used for both
// operations — keep it safe, rotate it periodically in production.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret should be at least 32 bytes of random data in
// production. Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// We use "sub" (Subject) to store the account email.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT access token for the given email.
//
// Token lifetime comes from the configured TTL (JWT_EXPIRATION_MS).
// After expiry, the client must re-authenticate.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple — good for single-server deployments
func (s *TokenService) Generate(email string) (string, error) {
	return s.GenerateWithDuration(email, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to produce already-expired or short-lived tokens.
func (s *TokenService) GenerateWithDuration(email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
// Returns the email (stored in the "sub" claim) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
//
// Failures are classified into the sentinel errors above; check them with
// errors.Is. Callers that don't care should treat any error as "not
// authenticated".
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %v", ErrTokenUnsupported, token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Translate jwt library errors into our failure taxonomy
		switch {
		case errors.Is(err, ErrTokenUnsupported):
			return "", err
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		default:
			return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrMalformedClaims
	}

	email := c.Subject
	if email == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrMalformedClaims)
	}

	return email, nil
}
