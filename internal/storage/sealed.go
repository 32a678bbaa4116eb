package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var sealedPrefix = []byte("sealed:v1:")

// ErrWatchUnsupported is returned by Watch on backends that cannot report foreign writes
var ErrWatchUnsupported = errors.New("storage backend does not report changes")

// Sealed encrypts values with AES-256-GCM before handing them to the wrapped
// store. The key name is bound as additional data so a value cannot be moved
// between keys. Values written before encryption was enabled are read as-is.
type Sealed struct {
	inner Storage
	aead  cipher.AEAD
}

// NewSealed derives the AES key from passphrase with argon2id
func NewSealed(inner Storage, passphrase, namespace string) (*Sealed, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase is empty")
	}

	key := argon2.IDKey([]byte(passphrase), []byte("offeradmin:"+namespace), 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Sealed{inner: inner, aead: aead}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, sealedPrefix) {
		return raw, nil
	}

	value, err := s.open(key, raw[len(sealedPrefix):])
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	return value, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return wrapErr("set", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *Sealed) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}

// Watch passes through to the wrapped store; events carry key names only
func (s *Sealed) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	w, ok := s.inner.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx)
}

func (s *Sealed) seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := s.aead.Seal(nonce, nonce, plaintext, []byte(key))

	out := make([]byte, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(ciphertext)))
	copy(out, sealedPrefix)
	base64.StdEncoding.Encode(out[len(sealedPrefix):], ciphertext)
	return out, nil
}

func (s *Sealed) open(key string, encoded []byte) ([]byte, error) {
	ciphertext := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(ciphertext, encoded)
	if err != nil {
		return nil, fmt.Errorf("malformed sealed value: %w", err)
	}
	ciphertext = ciphertext[:n]

	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("sealed value too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return s.aead.Open(nil, nonce, ciphertext, []byte(key))
}
