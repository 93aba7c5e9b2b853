package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drewfead/releasebridge/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func writeTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(t.TempDir(), "app.pem")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}
	return key, path
}

func TestNewAppClientRequiresCredentials(t *testing.T) {
	if NewAppClient(nil, "https://api.github.com") != nil {
		t.Error("expected nil client for nil identity")
	}
	if NewAppClient(&config.AppIdentity{AppID: "1"}, "https://api.github.com") != nil {
		t.Error("expected nil client for incomplete identity")
	}
}

func TestAppClientToken(t *testing.T) {
	key, keyPath := writeTestKey(t)

	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/app/installations/678/access_tokens" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil {
			t.Errorf("invalid app JWT: %v", err)
		}
		if claims.Issuer != "12345" {
			t.Errorf("expected issuer '12345', got '%s'", claims.Issuer)
		}

		exchanges++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_installation", "expires_at": "` +
			time.Now().Add(time.Hour).UTC().Format(time.RFC3339) + `"}`))
	}))
	defer srv.Close()

	client := NewAppClient(&config.AppIdentity{
		Name:           "release-bot",
		AppID:          "12345",
		InstallationID: "678",
		PrivateKeyPath: keyPath,
	}, srv.URL)

	for i := 0; i < 2; i++ {
		token, err := client.Token(context.Background())
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token != "ghs_installation" {
			t.Errorf("expected installation token, got '%s'", token)
		}
	}

	if exchanges != 1 {
		t.Errorf("expected cached token after first exchange, got %d exchanges", exchanges)
	}
	if client.String() != "release-bot" {
		t.Errorf("expected identity name, got '%s'", client.String())
	}
}

func TestAppClientExchangeFailure(t *testing.T) {
	_, keyPath := writeTestKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer srv.Close()

	client := NewAppClient(&config.AppIdentity{
		AppID:          "12345",
		InstallationID: "678",
		PrivateKeyPath: keyPath,
	}, srv.URL)

	if _, err := client.Token(context.Background()); err == nil {
		t.Fatal("expected exchange failure")
	}
}
