package testutils

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rostersync/utils"
)

// InteractionSigner signs request bodies the way the chat platform does
type InteractionSigner struct {
	PublicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewInteractionSigner creates a signer with a fresh Ed25519 key pair
func NewInteractionSigner(t *testing.T) *InteractionSigner {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &InteractionSigner{PublicKey: publicKey, privateKey: privateKey}
}

// Sign returns the hex signature over timestamp || body
func (s *InteractionSigner) Sign(timestamp string, body []byte) string {
	message := append([]byte(timestamp), body...)
	return hex.EncodeToString(ed25519.Sign(s.privateKey, message))
}

// SignedRequest builds a POST request carrying valid signature headers for body
func (s *InteractionSigner) SignedRequest(t *testing.T, path, body string) *http.Request {
	t.Helper()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(utils.SignatureHeader, s.Sign(timestamp, []byte(body)))
	req.Header.Set(utils.TimestampHeader, timestamp)
	return req
}
