package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0xAB}, 1024),
		{0x00, 0xFF, 0x10},
	}

	for _, plaintext := range payloads {
		enc, err := Encrypt(plaintext, nil)
		require.NoError(t, err)
		require.Len(t, enc.Key, KeySize)
		require.Len(t, enc.IV, IVSize)
		require.Len(t, enc.AuthTag, TagSize)
		require.Len(t, enc.Data, IVSize+TagSize+len(plaintext))

		got, err := Decrypt(enc.Data, hex.EncodeToString(enc.Key))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptWithProvidedKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeySize)
	enc, err := Encrypt([]byte("notice body"), key)
	require.NoError(t, err)
	assert.Equal(t, key, enc.Key)

	got, err := Decrypt(enc.Data, hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, []byte("notice body"), got)
}

func TestDecryptRejectsTampering(t *testing.T) {
	enc, err := Encrypt([]byte("confidential service packet"), nil)
	require.NoError(t, err)
	keyHex := hex.EncodeToString(enc.Key)

	// Flip one bit in the tag region and one in the ciphertext region.
	for _, offset := range []int{IVSize, IVSize + TagSize} {
		tampered := append([]byte(nil), enc.Data...)
		tampered[offset] ^= 0x01

		_, err := Decrypt(tampered, keyHex)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := Encrypt([]byte("payload"), nil)
	require.NoError(t, err)

	wrong := bytes.Repeat([]byte{0x01}, KeySize)
	_, err = Decrypt(enc.Data, hex.EncodeToString(wrong))
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptShortBlob(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeySize)
	_, err := Decrypt([]byte("short"), hex.EncodeToString(key))
	assert.Error(t, err)
}

// Fixture produced with:
//
//	openssl enc -aes-256-cbc -md md5 -S 0011223344556677 -pass pass:test-pass
//
// with the Salted__ header prepended, matching what CryptoJS emits.
const legacyFixture = "U2FsdGVkX18AESIzRFVmd36psjsHEYgNgFYa4vIFaAnQDJoRrwAV/jhzq5l0y8sd" +
	"Wcjj/Sm+DDKD6kmItGXhxeyF1MAIyjgNFmem2DMN9lhanBhHlsuAHOKgSmPtEeCF" +
	"rkTnskg5zijiKGNXKelDSQoDUYj1E5X1DV+KH8RZ0BA="

const legacyPlaintext = `{"thumbnail":"data:image/png;base64,iVBORw0KGgo=","document":"data:application/pdf;base64,JVBERi0xLjQK"}`

func TestDecryptLegacyFixture(t *testing.T) {
	got, err := DecryptLegacy(legacyFixture, "test-pass")
	require.NoError(t, err)
	assert.Equal(t, legacyPlaintext, got)
}

func TestDecryptLegacyWrongPassphrase(t *testing.T) {
	_, err := DecryptLegacy(legacyFixture, "not-the-pass")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecryptLegacyMissingHeader(t *testing.T) {
	_, err := DecryptLegacy("bm90IGEgc2FsdGVkIGJsb2I=", "test-pass")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = DecryptLegacy("%%%not-base64%%%", "test-pass")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestEVPBytesToKeyVector(t *testing.T) {
	salt, err := hex.DecodeString("0011223344556677")
	require.NoError(t, err)

	key, iv := evpBytesToKey([]byte("test-pass"), salt, 32, 16)
	assert.Equal(t, "6f7c991c11ad9292bed622c298c1e2f81024a42f2ef27d530e45c041fda247ec", hex.EncodeToString(key))
	assert.Equal(t, "9fcf7b6e03168b3e5c6e40341231b69a", hex.EncodeToString(iv))
}
