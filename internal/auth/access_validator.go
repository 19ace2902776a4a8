package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAudience is the audience stamped on hosted-auth user tokens.
	DefaultAudience = "authenticated"
	// AccessTokenQueryParam carries the token for EventSource clients that cannot set headers.
	AccessTokenQueryParam = "access_token"

	bearerPrefix = "bearer "
)

var (
	ErrMissingSigningSecret = errors.New("access validator: signing secret required")
	ErrMissingAccessToken   = errors.New("access validator: token required")
	ErrInvalidAccessToken   = errors.New("access validator: invalid token")
	ErrExpiredAccessToken   = errors.New("access validator: token expired")
	ErrMissingSubject       = errors.New("access validator: subject required")
)

// AccessClaims is the payload of a user access token. Subject is the user id.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccessValidatorConfig describes how access tokens are verified.
type AccessValidatorConfig struct {
	SigningSecret []byte
	// Issuer is enforced only when set.
	Issuer     string
	Audience   string
	CookieName string
	Clock      func() time.Time
}

// AccessValidator validates HS256 user access tokens.
type AccessValidator struct {
	signingSecret []byte
	issuer        string
	audience      string
	cookieName    string
	clock         func() time.Time
}

func NewAccessValidator(cfg AccessValidatorConfig) (*AccessValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = DefaultAudience
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AccessValidator{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        strings.TrimSpace(cfg.Issuer),
		audience:      audience,
		cookieName:    strings.TrimSpace(cfg.CookieName),
		clock:         clock,
	}, nil
}

// CookieName returns the cookie consulted when no bearer header is present.
func (v *AccessValidator) CookieName() string {
	return v.cookieName
}

// ValidateToken parses tokenString and returns its claims.
func (v *AccessValidator) ValidateToken(tokenString string) (AccessClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return AccessClaims{}, ErrMissingAccessToken
	}

	options := []jwt.ParserOption{
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.signingSecret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrExpiredAccessToken
		}
		return AccessClaims{}, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return AccessClaims{}, ErrMissingSubject
	}
	return *claims, nil
}

// ValidateRequest looks for a token in the Authorization header, then the
// configured cookie, then the access_token query parameter.
func (v *AccessValidator) ValidateRequest(r *http.Request) (AccessClaims, error) {
	token := v.extractToken(r)
	if token == "" {
		return AccessClaims{}, ErrMissingAccessToken
	}
	return v.ValidateToken(token)
}

func (v *AccessValidator) extractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if v.cookieName != "" {
		if cookie, err := r.Cookie(v.cookieName); err == nil && cookie != nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	if r.URL != nil {
		return strings.TrimSpace(r.URL.Query().Get(AccessTokenQueryParam))
	}
	return ""
}
