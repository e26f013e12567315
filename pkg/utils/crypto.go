package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Token envelopes are persisted as base64(iv):base64(tag):base64(ciphertext).
// The three segments are colon-delimited and the order is fixed.
const envelopeDelimiter = ":"

var ErrInvalidEnvelope = errors.New("invalid credential envelope")

// Encrypt seals plaintext with AES-256-GCM under key using a fresh random
// nonce and returns the envelope string.
func Encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Seal appends the auth tag to the ciphertext; the envelope stores them
	// as separate segments.
	sealed := aesGCM.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - aesGCM.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	parts := []string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}
	return strings.Join(parts, envelopeDelimiter), nil
}

// Decrypt opens an envelope produced by Encrypt. It fails closed: a tag
// mismatch, a wrong key, or a malformed envelope always returns an error,
// never partial plaintext.
func Decrypt(envelope string, key []byte) (string, error) {
	parts := strings.Split(envelope, envelopeDelimiter)
	if len(parts) != 3 {
		return "", ErrInvalidEnvelope
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidEnvelope
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(nonce) != aesGCM.NonceSize() || len(tag) != aesGCM.Overhead() {
		return "", ErrInvalidEnvelope
	}

	plaintext, err := aesGCM.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
