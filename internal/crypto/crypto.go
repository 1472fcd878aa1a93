package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // 96-bit GCM nonce
	tagSize   = 16

	kdfIterations = 100_000
)

// EncryptionError signals an internal failure while sealing a message.
// Callers must surface it; content is never silently written with weaker
// encoding.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed: %v", e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// DecryptionError covers malformed blobs, truncated input and failed
// authentication. A caller can log it and render the message as unreadable
// instead of failing the whole request.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Cipher seals and opens message content with AES-256-GCM under a single
// static key. The key comes from configuration and is normalized to exactly
// 32 bytes. No key rotation: blobs carry no key id, so rotating the key
// orphans existing rows (they degrade to unreadable on the way out).
type Cipher struct {
	key []byte
}

func New(key string) *Cipher {
	return &Cipher{key: normalizeKey(key)}
}

// normalizeKey zero-pads or truncates an informally supplied key to the
// exact AES-256 size.
func normalizeKey(key string) []byte {
	k := make([]byte, keySize)
	copy(k, key)
	for i := len(key); i < keySize; i++ {
		k[i] = '0'
	}
	return k
}

// Encrypt seals plaintext and returns base64(nonce ‖ authTag ‖ ciphertext).
// The empty string round-trips to the empty string.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &EncryptionError{Err: err}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", &EncryptionError{Err: err}
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", &EncryptionError{Err: err}
	}

	// Seal returns ciphertext||tag; the blob layout puts the tag between
	// nonce and ciphertext, matching the stored format.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Any tampering, truncation or
// wrong-key input returns a DecryptionError, never garbage plaintext.
func (c *Cipher) Decrypt(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &DecryptionError{Reason: "not base64"}
	}
	if len(raw) < nonceSize+tagSize {
		return "", &DecryptionError{Reason: "blob too short"}
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ct := raw[nonceSize+tagSize:]

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}

// DeriveKey stretches a password with PBKDF2-SHA256 and returns the derived
// 32-byte key base64-encoded.
func DeriveKey(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), kdfIterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// SecureToken returns n random bytes hex-encoded.
func SecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HMAC computes a hex-encoded HMAC-SHA256 over data.
func HMAC(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares an expected HMAC in constant time.
func VerifyHMAC(data, expected, secret string) bool {
	computed := HMAC(data, secret)
	return hmac.Equal([]byte(computed), []byte(expected))
}

// SHA256 returns the hex-encoded digest of data.
func SHA256(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
