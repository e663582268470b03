package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewEncryptionService("correct horse battery staple")
	require.NoError(t, err)

	plaintext := []byte("sk-ant-very-secret")
	ciphertext, nonce, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Len(t, nonce, 12)

	got, err := svc.Decrypt(ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSamePassphraseDecryptsAcrossInstances(t *testing.T) {
	first, err := NewEncryptionService("shared passphrase")
	require.NoError(t, err)
	second, err := NewEncryptionService("shared passphrase")
	require.NoError(t, err)

	ciphertext, nonce, err := first.Encrypt([]byte("payload"))
	require.NoError(t, err)

	got, err := second.Decrypt(ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestWrongKeyFailsToDecrypt(t *testing.T) {
	right, err := NewEncryptionService("right key")
	require.NoError(t, err)
	wrong, err := NewEncryptionService("wrong key")
	require.NoError(t, err)

	ciphertext, nonce, err := right.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = wrong.Decrypt(ciphertext, nonce)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt")
}

func TestHexKeyUsedAsRawMaterial(t *testing.T) {
	rawHex := strings.Repeat("ab", 32)
	svc, err := NewEncryptionService(rawHex)
	require.NoError(t, err)

	expected := make([]byte, 32)
	for i := range expected {
		expected[i] = 0xab
	}
	assert.Equal(t, expected, svc.masterKey)
}

func TestShortHexTreatedAsPassphrase(t *testing.T) {
	// Valid hex but not 32 bytes, so it goes through the KDF.
	svc, err := NewEncryptionService("abcd")
	require.NoError(t, err)
	assert.Len(t, svc.masterKey, 32)
	assert.NotEqual(t, []byte{0xab, 0xcd}, svc.masterKey[:2])
}

func TestEmptyKeyGeneratesRandomKey(t *testing.T) {
	first, err := NewEncryptionService("")
	require.NoError(t, err)
	second, err := NewEncryptionService("")
	require.NoError(t, err)

	assert.Len(t, first.masterKey, 32)
	assert.NotEqual(t, first.masterKey, second.masterKey)
}

func TestNoncesAreUnique(t *testing.T) {
	svc, err := NewEncryptionService("key")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		_, nonce, err := svc.Encrypt([]byte("same plaintext"))
		require.NoError(t, err)
		assert.False(t, seen[string(nonce)], "nonce reused")
		seen[string(nonce)] = true
	}
}

func TestTamperedCiphertextRejected(t *testing.T) {
	svc, err := NewEncryptionService("key")
	require.NoError(t, err)

	ciphertext, nonce, err := svc.Encrypt([]byte("payload"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xff

	_, err = svc.Decrypt(ciphertext, nonce)
	assert.Error(t, err)
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, s, 32, "hex doubles the byte length")

	other, err := GenerateRandomString(16)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}
