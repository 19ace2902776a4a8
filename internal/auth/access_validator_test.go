package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSigningSecret = "secret"
	testCookieName    = "frogsy_access"
	testUserID        = "4b1f6a5e-user"
	testUserEmail     = "user@example.com"
)

func newTestValidator(t *testing.T, clock func() time.Time) *AccessValidator {
	t.Helper()
	validator, err := NewAccessValidator(AccessValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		CookieName:    testCookieName,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	return validator
}

func signClaims(t *testing.T, claims AccessClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestNewAccessValidatorRequiresSecret(t *testing.T) {
	if _, err := NewAccessValidator(AccessValidatorConfig{}); !errors.Is(err, ErrMissingSigningSecret) {
		t.Fatalf("expected ErrMissingSigningSecret, got %v", err)
	}
}

func TestAccessValidatorValidateToken(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator := newTestValidator(t, func() time.Time { return clockNow })

	signed := signClaims(t, AccessClaims{
		Email: testUserEmail,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{DefaultAudience},
			IssuedAt:  jwt.NewNumericDate(clockNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
		},
	})

	claims, err := validator.ValidateToken(signed)
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if claims.Subject != testUserID || claims.Email != testUserEmail {
		t.Fatalf("unexpected claims %#v", claims)
	}
}

func TestAccessValidatorRejectsExpiredAndForeignTokens(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator := newTestValidator(t, func() time.Time { return clockNow })

	expired := signClaims(t, AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   testUserID,
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(clockNow.Add(-time.Hour)),
	}})
	if _, err := validator.ValidateToken(expired); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}

	wrongAudience := signClaims(t, AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   testUserID,
		Audience:  jwt.ClaimStrings{"anon"},
		ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
	}})
	if _, err := validator.ValidateToken(wrongAudience); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken for audience, got %v", err)
	}

	noSubject := signClaims(t, AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
	}})
	if _, err := validator.ValidateToken(noSubject); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}

	if _, err := validator.ValidateToken("  "); !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected ErrMissingAccessToken, got %v", err)
	}
}

func TestAccessValidatorValidateRequestSources(t *testing.T) {
	validator := newTestValidator(t, nil)
	issuer, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte(testSigningSecret)})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	signed, _, err := issuer.Issue(context.Background(), Identity{UserID: testUserID})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	header := httptest.NewRequest(http.MethodGet, "/entries", http.NoBody)
	header.Header.Set("Authorization", "Bearer "+signed)

	cookie := httptest.NewRequest(http.MethodGet, "/entries", http.NoBody)
	cookie.AddCookie(&http.Cookie{Name: testCookieName, Value: signed})

	query := httptest.NewRequest(http.MethodGet, "/events?access_token="+signed, http.NoBody)

	for name, request := range map[string]*http.Request{"header": header, "cookie": cookie, "query": query} {
		claims, err := validator.ValidateRequest(request)
		if err != nil {
			t.Fatalf("%s: validation failed: %v", name, err)
		}
		if claims.Subject != testUserID {
			t.Fatalf("%s: unexpected subject %s", name, claims.Subject)
		}
	}

	if _, err := validator.ValidateRequest(httptest.NewRequest(http.MethodGet, "/entries", http.NoBody)); !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected ErrMissingAccessToken, got %v", err)
	}
}

func TestAccessValidatorEnforcesConfiguredIssuer(t *testing.T) {
	validator, err := NewAccessValidator(AccessValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "https://auth.frogsy.example",
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	signed := signClaims(t, AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   testUserID,
		Issuer:    "https://elsewhere.example",
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if _, err := validator.ValidateToken(signed); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected issuer mismatch to be rejected, got %v", err)
	}
}
