// Package codec seals message bodies with an AEAD under a single key taken
// from the server passphrase.
//
// Every message on the server is encrypted with the same key. Anyone holding
// the deployed passphrase can decrypt every stored message; the codec only
// protects rows at rest from someone who has the database but not the
// configuration.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/pliu/siso/internal/apperr"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Supported cipher names.
const (
	AES256GCM         = "aes-256-gcm"
	XChaCha20Poly1305 = "xchacha20-poly1305"
)

const keyInfo = "siso message key v1"

// Sealed is the stored form of one encrypted payload. All fields are
// standard base64.
type Sealed struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// Codec encrypts and decrypts message bodies. It is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
	name string
	rand io.Reader
}

// New builds the named AEAD keyed from passphrase. An empty name selects
// AES-256-GCM.
//
// AES-256-GCM uses SHA-256 of the passphrase as its key so rows written by
// existing deployments stay readable. XChaCha20-Poly1305 derives its key
// with HKDF-SHA256.
func New(passphrase, name string) (*Codec, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", apperr.ErrInvalidArgument)
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch name {
	case "", AES256GCM:
		name = AES256GCM
		key := sha256.Sum256([]byte(passphrase))
		var block cipher.Block
		block, err = aes.NewCipher(key[:])
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case XChaCha20Poly1305:
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(keyInfo)), key); err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
		aead, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%w: unknown cipher %q", apperr.ErrInvalidArgument, name)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", name, err)
	}
	return &Codec{aead: aead, name: name, rand: rand.Reader}, nil
}

// Name returns the cipher in use.
func (c *Codec) Name() string { return c.name }

// Encrypt seals plaintext under a fresh random nonce.
func (c *Codec) Encrypt(plaintext string) (Sealed, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("read nonce: %w", err)
	}
	out := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(out) - c.aead.Overhead()
	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(out[:split]),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(out[split:]),
	}, nil
}

// Decrypt opens a sealed payload. It fails with apperr.ErrFormat when a
// field does not decode or has the wrong length and with apperr.ErrIntegrity
// when the tag does not verify.
func (c *Codec) Decrypt(s Sealed) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", apperr.ErrFormat, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(s.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", apperr.ErrFormat, err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: iv is %d bytes, want %d", apperr.ErrFormat, len(nonce), c.aead.NonceSize())
	}
	tag, err := base64.StdEncoding.DecodeString(s.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%w: auth tag: %v", apperr.ErrFormat, err)
	}
	if len(tag) != c.aead.Overhead() {
		return "", fmt.Errorf("%w: auth tag is %d bytes, want %d", apperr.ErrFormat, len(tag), c.aead.Overhead())
	}

	plain, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", apperr.ErrIntegrity
	}
	return string(plain), nil
}
