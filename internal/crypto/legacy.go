package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"fmt"
)

// saltedMagic is the OpenSSL header CryptoJS writes before the 8-byte salt.
const saltedMagic = "Salted__"

// SaltedPrefixB64 is what the magic looks like through base64. The recovery
// pipeline checks it before spending a decryption attempt on junk.
const SaltedPrefixB64 = "U2FsdGVkX1"

// DecryptLegacy decrypts a base64 CryptoJS/OpenSSL AES-256-CBC payload with
// the MD5-iterated EVP_BytesToKey derivation the legacy browser encryptor
// used. That KDF is required byte-for-byte; nothing else opens old blobs.
func DecryptLegacy(encoded, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrFormat, err)
	}
	if len(raw) < len(saltedMagic)+8 || string(raw[:len(saltedMagic)]) != saltedMagic {
		return "", fmt.Errorf("%w: missing Salted__ header", ErrFormat)
	}

	salt := raw[len(saltedMagic) : len(saltedMagic)+8]
	ciphertext := raw[len(saltedMagic)+8:]

	key, iv := evpBytesToKey([]byte(passphrase), salt, KeySize, aes.BlockSize)

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d not a block multiple", ErrDecryption, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// evpBytesToKey reproduces OpenSSL's legacy EVP_BytesToKey with MD5:
// D_1 = MD5(pass||salt), D_n = MD5(D_{n-1}||pass||salt), concatenated until
// keyLen+ivLen bytes are available.
func evpBytesToKey(passphrase, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryption)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	return data[:len(data)-n], nil
}
