package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes).
	KeySize = 32
	// NonceSize is the standard size for GCM nonces (12 bytes).
	NonceSize = 12
	// TagSize is the GCM authentication tag size (16 bytes).
	TagSize = 16

	// AlgorithmAESGCM identifies the only envelope algorithm in use.
	AlgorithmAESGCM = "aes-256-gcm"
)

// envelopeAAD binds every envelope to its purpose. Supplied at encryption
// and re-supplied at decryption; an envelope lifted into another context
// fails authentication.
var envelopeAAD = []byte("daybook:api-token-secret")

// Envelope is the stored form of an encrypted token secret. All four fields
// must be present and size-correct for the envelope to be structurally
// valid; structural problems are reported separately from authentication
// failures at decrypt time.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
	Algorithm  string `json:"algorithm"`
}

// Validate checks the envelope's structure without touching the key.
func (e *Envelope) Validate() error {
	if e.Algorithm != AlgorithmAESGCM {
		return fmt.Errorf("%w: unknown algorithm %q", ErrEnvelopeInvalid, e.Algorithm)
	}
	if e.Ciphertext == "" {
		return fmt.Errorf("%w: empty ciphertext", ErrEnvelopeInvalid)
	}
	nonce, err := base64.StdEncoding.DecodeString(e.Nonce)
	if err != nil || len(nonce) != NonceSize {
		return fmt.Errorf("%w: bad nonce", ErrEnvelopeInvalid)
	}
	tag, err := base64.StdEncoding.DecodeString(e.Tag)
	if err != nil || len(tag) != TagSize {
		return fmt.Errorf("%w: bad tag", ErrEnvelopeInvalid)
	}
	if _, err := base64.StdEncoding.DecodeString(e.Ciphertext); err != nil {
		return fmt.Errorf("%w: bad ciphertext", ErrEnvelopeInvalid)
	}
	return nil
}

// Marshal renders the envelope as JSON for storage in a text column.
func (e *Envelope) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseEnvelope decodes a stored envelope. A record that does not even
// parse is structurally invalid.
func ParseEnvelope(stored string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(stored), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}
	return &env, nil
}

// SecretCodec reversibly stores token secrets using AES-256-GCM so the
// original secret can be shown again on explicit request. The key is loaded
// once at process start and passed in; it is never derived lazily.
type SecretCodec struct {
	key []byte
}

// NewSecretCodec creates a codec from a hex-encoded 32-byte key.
func NewSecretCodec(hexKey string) (*SecretCodec, error) {
	if hexKey == "" {
		return nil, ErrEncryptionKeyMissing
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	// Copy key to avoid external mutation
	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)

	return &SecretCodec{key: keyCopy}, nil
}

// NewEphemeralCodec creates a codec with a random per-boot key. Anything
// encrypted with it is unrecoverable after restart; acceptable only for
// non-persistent development setups.
func NewEphemeralCodec() (*SecretCodec, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return &SecretCodec{key: key}, nil
}

// GenerateKey generates a new random key in the hex form the configuration
// expects.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals the plaintext into a fresh envelope.
func (c *SecretCodec) Encrypt(plaintext string) (*Envelope, error) {
	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), envelopeAAD)

	// GCM appends the tag to the ciphertext; the envelope keeps them apart.
	split := len(sealed) - TagSize
	return &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
		Algorithm:  AlgorithmAESGCM,
	}, nil
}

// Decrypt opens an envelope. It validates structure first, then fails
// closed on any authentication error: partial plaintext is never returned.
func (c *SecretCodec) Decrypt(env *Envelope) (string, error) {
	if err := env.Validate(); err != nil {
		return "", err
	}

	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce, _ := base64.StdEncoding.DecodeString(env.Nonce)
	ciphertext, _ := base64.StdEncoding.DecodeString(env.Ciphertext)
	tag, _ := base64.StdEncoding.DecodeString(env.Tag)

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), envelopeAAD)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func (c *SecretCodec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
