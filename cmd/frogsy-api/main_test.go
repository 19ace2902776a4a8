package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/auth"
)

func TestVAPIDCommandPrintsKeyPair(t *testing.T) {
	var output bytes.Buffer
	rootCmd := newRootCommand()
	rootCmd.SetOut(&output)
	rootCmd.SetArgs([]string{"vapid"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("vapid command failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "FROGSY_PUSH_VAPID_PUBLIC_KEY=") || !strings.HasPrefix(lines[1], "FROGSY_PUSH_VAPID_PRIVATE_KEY=") {
		t.Fatalf("unexpected output %q", output.String())
	}
}

func TestTokenCommandMintsValidatableToken(t *testing.T) {
	var output bytes.Buffer
	rootCmd := newRootCommand()
	rootCmd.SetOut(&output)
	rootCmd.SetArgs([]string{"token", "--user", "user-cli", "--signing-secret", "cli-secret"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}
	var response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(output.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode output %q: %v", output.String(), err)
	}

	validator, err := auth.NewAccessValidator(auth.AccessValidatorConfig{SigningSecret: []byte("cli-secret")})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	claims, err := validator.ValidateToken(response.AccessToken)
	if err != nil {
		t.Fatalf("minted token rejected: %v", err)
	}
	if claims.Subject != "user-cli" || response.TokenType != "Bearer" {
		t.Fatalf("unexpected token response %#v", response)
	}
}
