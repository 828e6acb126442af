package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleAADTruncatesByScope(t *testing.T) {
	fileAAD := []byte("file-aad")

	footer := ModuleAAD(fileAAD, ModuleFooter, -1, -1, -1)
	assert.Equal(t, append(append([]byte{}, fileAAD...), byte(ModuleFooter)), footer)

	colMeta := ModuleAAD(fileAAD, ModuleColumnMetaData, 2, 3, -1)
	assert.Len(t, colMeta, len(fileAAD)+1+2+2)

	page := ModuleAAD(fileAAD, ModuleDataPage, 2, 3, 5)
	assert.Len(t, page, len(fileAAD)+1+2+2+2)
}

func TestQuickUpdatePageAADChangesOnlyTrailingOrdinal(t *testing.T) {
	aad := ModuleAAD([]byte("f"), ModuleDataPage, 0, 0, 1)
	before := append([]byte{}, aad...)
	QuickUpdatePageAAD(aad, 2)
	assert.NotEqual(t, before, aad)
	assert.Equal(t, before[:len(before)-2], aad[:len(aad)-2])
}

func TestAESGCMDecryptorRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)

	enc, err := NewAESGCMDecryptor(key)
	require.NoError(t, err)

	plaintext := []byte("secret page bytes")
	aad := []byte("module-aad")
	module := encryptForTest(t, key, plaintext, aad)

	got, err := enc.Decrypt(module, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAESGCMDecryptorRejectsWrongAAD(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)

	enc, err := NewAESGCMDecryptor(key)
	require.NoError(t, err)

	module := encryptForTest(t, key, []byte("payload"), []byte("aad-a"))
	_, err = enc.Decrypt(module, []byte("aad-b"))
	assert.Error(t, err)
}
