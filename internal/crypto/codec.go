package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize matches the 16-byte IV the legacy Node encryptor used for GCM.
	IVSize = 16
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

var (
	// ErrAuthentication means the GCM tag did not verify: wrong key or a
	// tampered/corrupted blob. Callers must not conflate this with an
	// authorization failure.
	ErrAuthentication = errors.New("crypto: authentication failed")
	// ErrFormat means a legacy payload is not in the Salted__ OpenSSL format.
	ErrFormat = errors.New("crypto: malformed legacy payload")
	// ErrDecryption means legacy CBC decryption produced invalid padding,
	// usually a wrong passphrase.
	ErrDecryption = errors.New("crypto: decryption failed")
)

// Encrypted is the result of one Encrypt call. Data holds
// IV || authTag || ciphertext so a blob is self-contained on disk.
type Encrypted struct {
	Data    []byte
	Key     []byte
	IV      []byte
	AuthTag []byte
}

// Encrypt seals plaintext with AES-256-GCM. A nil key generates a fresh
// random 32-byte key; the IV is always freshly generated.
func Encrypt(plaintext, key []byte) (*Encrypted, error) {
	if key == nil {
		key = make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	data := make([]byte, 0, IVSize+TagSize+len(ciphertext))
	data = append(data, iv...)
	data = append(data, tag...)
	data = append(data, ciphertext...)

	return &Encrypted{Data: data, Key: key, IV: iv, AuthTag: tag}, nil
}

// Decrypt opens a blob produced by Encrypt. The key is hex-encoded as stored
// in document metadata. A tag mismatch returns ErrAuthentication.
func Decrypt(blob []byte, keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(blob) < IVSize+TagSize {
		return nil, fmt.Errorf("blob too short: %d bytes", len(blob))
	}

	iv := blob[:IVSize]
	tag := blob[IVSize : IVSize+TagSize]
	ciphertext := blob[IVSize+TagSize:]

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	// gcm.Open hands back nil for an empty message; callers compare against
	// empty slices, so normalize.
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
