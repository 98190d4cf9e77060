package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (OWASP minimum profile: 19 MiB, 2 passes, 1 lane).
const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 19 * 1024
	argonThreads uint8  = 1
	keyLen              = 32

	saltPrefix = "securenotes/v1/"
)

// deriveKey stretches the encryption password into an AES-256 key. The salt
// is bound to the application token so every device of the same app derives
// the same key from the same password.
func deriveKey(password, appToken string) []byte {
	salt := sha256.Sum256([]byte(saltPrefix + appToken))
	return argon2.IDKey([]byte(password), salt[:16], argonTime, argonMemory, argonThreads, keyLen)
}

// newAEAD builds an AES-GCM cipher from a 32-byte key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// seal encrypts plain with a fresh random nonce; the result is nonce || ciphertext.
// aad binds the ciphertext to the object path so blobs cannot be swapped.
func seal(aead cipher.AEAD, aad string, plain []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, []byte(aad)), nil
}

// open reverses seal.
func open(aead cipher.AEAD, aad string, data []byte) ([]byte, error) {
	if len(data) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ct := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(aad))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
