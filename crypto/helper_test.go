package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// encryptForTest builds the on-disk module layout (length prefix + nonce +
// ciphertext+tag) AESGCMDecryptor.Decrypt expects, using the standard
// library directly rather than exercising the type under test.
func encryptForTest(t *testing.T, key, plaintext, aad []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aead, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, nonceSize)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	ciphertext := aead.Seal(nil, nonce, plaintext, aad)

	body := append(append([]byte{}, nonce...), ciphertext...)
	out := make([]byte, lengthPrefixSize)
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	return append(out, body...)
}
