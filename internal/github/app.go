package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/drewfead/releasebridge/internal/config"
	"github.com/drewfead/releasebridge/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// AppClient authenticates as a GitHub App installation.
// It implements TokenSource and caches the installation token until shortly before expiry.
type AppClient struct {
	identity   *config.AppIdentity
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewAppClient creates a GitHub App token source for the given identity.
// Returns nil if the identity doesn't have GitHub App credentials.
func NewAppClient(identity *config.AppIdentity, baseURL string) *AppClient {
	if !identity.HasGitHubApp() {
		return nil
	}
	return &AppClient{
		identity:   identity,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
}

// Token returns a valid installation access token, refreshing it if necessary.
func (c *AppClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-5*time.Minute)) {
		return c.token, nil
	}

	jwtToken, err := c.generateJWT()
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT: %w", err)
	}

	token, expiry, err := c.exchangeForInstallationToken(ctx, jwtToken)
	if err != nil {
		return "", err
	}

	c.token = token
	c.tokenExpiry = expiry

	logging.Debug("refreshed GitHub App installation token",
		"app", c.String(),
		"expires", expiry.Format(time.RFC3339))

	return token, nil
}

// generateJWT creates a signed JWT for GitHub App authentication.
func (c *AppClient) generateJWT() (string, error) {
	keyData, err := os.ReadFile(c.identity.PrivateKeyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read private key: %w", err)
	}

	privateKey, err := parseRSAPrivateKey(keyData)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)), // Clock skew buffer
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),  // GitHub maximum
		Issuer:    c.identity.AppID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

func (c *AppClient) exchangeForInstallationToken(ctx context.Context, jwtToken string) (string, time.Time, error) {
	path := fmt.Sprintf("/app/installations/%s/access_tokens", c.identity.InstallationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, jwtToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", time.Time{}, &APIError{Method: http.MethodPost, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Token, result.ExpiresAt, nil
}

// parseRSAPrivateKey parses a PEM-encoded RSA private key in PKCS#1 or PKCS#8 form.
func parseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}

// String returns the identity name for logging.
func (c *AppClient) String() string {
	if c == nil || c.identity == nil {
		return "<no identity>"
	}
	if c.identity.Name != "" {
		return c.identity.Name
	}
	return "app-" + c.identity.AppID
}
