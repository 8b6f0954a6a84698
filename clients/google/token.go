package google

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rostersync/clients"
	"rostersync/core"
)

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
)

// Credentials are the service account fields needed for the JWT bearer grant
type Credentials struct {
	ClientEmail  string
	PrivateKey   []byte
	PrivateKeyID string
	TokenURI     string
}

// ServiceAccountTokenSource exchanges a signed service account assertion for an access token.
// Tokens are not cached; every call performs one exchange.
type ServiceAccountTokenSource struct {
	httpClient  *http.Client
	clientEmail string
	keyID       string
	tokenURI    string
	privateKey  *rsa.PrivateKey
	now         func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewServiceAccountTokenSource(httpClient *http.Client, credentials Credentials) (clients.TokenSource, error) {
	if credentials.ClientEmail == "" || credentials.TokenURI == "" {
		return nil, fmt.Errorf("service account client email and token uri are required: %w", core.ErrConfiguration)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(credentials.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid service account private key: %w: %w", core.ErrConfiguration, err)
	}

	return &ServiceAccountTokenSource{
		httpClient:  httpClient,
		clientEmail: credentials.ClientEmail,
		keyID:       credentials.PrivateKeyID,
		tokenURI:    credentials.TokenURI,
		privateKey:  privateKey,
		now:         time.Now,
	}, nil
}

func (s *ServiceAccountTokenSource) Token(ctx context.Context, scopes ...string) (string, error) {
	assertion, err := s.signAssertion(scopes)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response body: %w: %w", core.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d: %s: %w", resp.StatusCode, string(body), core.ErrUpstream)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w: %w", core.ErrUpstream, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token: %w", core.ErrUpstream)
	}

	return tokenResp.AccessToken, nil
}

func (s *ServiceAccountTokenSource) signAssertion(scopes []string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": strings.Join(scopes, " "),
		"aud":   s.tokenURI,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(assertionLifetime)),
	})
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service account assertion: %w", err)
	}
	return signed, nil
}
