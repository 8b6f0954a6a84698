package utils

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	SignatureHeader = "X-Signature-Ed25519"
	TimestampHeader = "X-Signature-Timestamp"
)

// ParsePublicKey decodes the hex-encoded application public key shown in the developer portal
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	keyBytes, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("public key is not valid hex: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(keyBytes))
	}
	return ed25519.PublicKey(keyBytes), nil
}

// VerifyInteractionSignature checks an Ed25519 signature over timestamp || body.
// It never panics and reports false for any missing or malformed input.
func VerifyInteractionSignature(publicKey ed25519.PublicKey, signatureHex, timestamp string, body []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || signatureHex == "" || timestamp == "" {
		return false
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)

	return ed25519.Verify(publicKey, message, signature)
}
