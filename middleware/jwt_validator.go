package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const clockSkew = 30 * time.Second

var (
	// ErrTokenExpired is returned when JWT validation fails due to expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for signature and format failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissingClaim is returned if the 'sub' claim is missing.
	ErrTokenMissingClaim = errors.New("token missing required claim")
)

// Validator validates a bearer token and returns the caller's user ID.
type Validator interface {
	Validate(tokenString string) (string, error)
}

// JWTValidator checks HS256 tokens signed with the service secret.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

var _ Validator = (*JWTValidator)(nil)

// NewJWTValidator creates a validator from the server configuration.
func NewJWTValidator(cfg *config.ServerConfig) (*JWTValidator, error) {
	if cfg.JwtSecretKey == "" {
		return nil, fmt.Errorf("JWT validator configuration error: JWT_SECRET_KEY is not set")
	}
	logger.GetLogger().Info("JWT Validator: HS256 validation enabled.")
	return &JWTValidator{secret: []byte(cfg.JwtSecretKey), now: time.Now}, nil
}

// Validate parses and verifies the token, returning its subject.
func (v *JWTValidator) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	sub := token.Subject()
	if sub == "" {
		return "", ErrTokenMissingClaim
	}
	return sub, nil
}
