// Package vault seals trading API keys at rest with a passphrase.
//
// Envelopes are JSON documents holding a PBKDF2-HMAC-SHA256 salt, an
// AES-256-GCM nonce and the ciphertext, all base64 encoded.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the OWASP-recommended minimum for HMAC-SHA256.
	DefaultIterations = 480_000
	saltLen           = 16
	aesKeyLen         = 32
	currentVersion    = 1
)

var (
	// ErrEmptyPassphrase is returned by New without a passphrase.
	ErrEmptyPassphrase = errors.New("vault: passphrase must not be empty")
	// ErrMalformedEnvelope is returned for envelopes that cannot be parsed.
	ErrMalformedEnvelope = errors.New("vault: malformed envelope")
	// ErrDecrypt is returned when authentication fails, usually a wrong passphrase.
	ErrDecrypt = errors.New("vault: decryption failed")
)

type envelope struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations,omitempty"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Vault seals and opens secrets with one passphrase.
// Derived keys are cached per salt so repeated opens skip the key stretch.
type Vault struct {
	passphrase []byte
	iterations int

	mu   sync.Mutex
	keys map[string][]byte
}

// Option configures a Vault.
type Option func(*Vault)

// WithIterations overrides the PBKDF2 iteration count for new envelopes.
func WithIterations(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.iterations = n
		}
	}
}

// New creates a vault for passphrase.
func New(passphrase string, opts ...Option) (*Vault, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	v := &Vault{
		passphrase: []byte(passphrase),
		iterations: DefaultIterations,
		keys:       make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Seal encrypts plaintext and returns the JSON envelope.
func (v *Vault) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("vault: generating salt: %w", err)
	}

	gcm, err := v.cipher(salt, v.iterations)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}

	out, err := json.Marshal(envelope{
		Version:    currentVersion,
		Iterations: v.iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, []byte(plaintext), nil)),
	})
	if err != nil {
		return "", fmt.Errorf("vault: encoding envelope: %w", err)
	}
	return string(out), nil
}

// Open decrypts an envelope produced by Seal.
func (v *Vault) Open(sealed string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(sealed), &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Version != currentVersion {
		return "", fmt.Errorf("%w: unsupported version %d", ErrMalformedEnvelope, env.Version)
	}
	if env.Iterations == 0 {
		env.Iterations = DefaultIterations
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) == 0 {
		return "", fmt.Errorf("%w: bad salt", ErrMalformedEnvelope)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce", ErrMalformedEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrMalformedEnvelope)
	}

	gcm, err := v.cipher(salt, env.Iterations)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: nonce length %d", ErrMalformedEnvelope, len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

func (v *Vault) cipher(salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.deriveKey(salt, iterations))
	if err != nil {
		return nil, fmt.Errorf("vault: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: creating GCM: %w", err)
	}
	return gcm, nil
}

func (v *Vault) deriveKey(salt []byte, iterations int) []byte {
	cacheKey := fmt.Sprintf("%d:%x", iterations, salt)

	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[cacheKey]; ok {
		return key
	}
	key := pbkdf2.Key(v.passphrase, salt, iterations, aesKeyLen, sha256.New)
	v.keys[cacheKey] = key
	return key
}
