package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/DukeRupert/authportal/internal/domain"
)

const hkdfInfo = "authportal session v1"

// ErrTampered is returned when sealed data fails authentication.
var ErrTampered = errors.New("session data failed authentication")

// Codec turns sessions into sealed bytes and back. The session ID is bound
// as additional data, so a blob copied under another ID will not open.
//
// Password fields are never written: Seal always stores the redacted form.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives an XChaCha20-Poly1305 key from secret. An empty secret
// yields a random key, so sessions do not survive a restart.
func NewCodec(secret string) (*Codec, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	} else {
		kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, fmt.Errorf("derive session key: %w", err)
		}
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create session cipher: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal encodes and encrypts a session.
func (c *Codec) Seal(sess *domain.Session) ([]byte, error) {
	stored := *sess
	stored.Form.Fields = sess.Form.Fields.Redacted()

	plaintext, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, []byte(sess.ID)), nil
}

// Open decrypts and decodes a session stored under id.
func (c *Codec) Open(id string, data []byte) (*domain.Session, error) {
	if len(data) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, ErrTampered
	}
	nonce, ciphertext := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return nil, ErrTampered
	}

	var sess domain.Session
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Form.Errors == nil {
		sess.Form.Errors = domain.ErrorMap{}
	}
	if !sess.Form.Mode.Valid() {
		sess.Form.Mode = domain.ModeSignUp
	}
	return &sess, nil
}
