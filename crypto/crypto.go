// Package crypto implements the file format's per-module AES-GCM
// decryption and the Additional Authenticated Data (AAD) derivation that
// keys it. There is no third-party library in the retrieval pack (or
// found in the wider ecosystem) implementing this file-format-specific
// AAD layout, so this package is built directly on the standard library's
// crypto/aes and crypto/cipher — the actual cipher primitives are
// standard AES-GCM, just keyed by a format-specific AAD construction that
// no general-purpose crypto library would know how to build for us.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// ModuleType identifies which part of the file a ciphertext module came
// from; it is mixed into the AAD so that ciphertext from one module
// cannot be replayed in place of another.
type ModuleType byte

const (
	ModuleFooter             ModuleType = 0
	ModuleColumnMetaData     ModuleType = 1
	ModuleDataPage           ModuleType = 2
	ModuleDictionaryPage     ModuleType = 3
	ModuleDataPageHeader     ModuleType = 4
	ModuleDictionaryPageHeader ModuleType = 5
	ModuleColumnIndex        ModuleType = 6
	ModuleOffsetIndex        ModuleType = 7
	ModuleBloomFilterHeader  ModuleType = 8
	ModuleBloomFilterBitset  ModuleType = 9
)

// Decryptor decrypts a module's ciphertext given the AAD that keys it.
// GCM tag verification happens inside Decrypt; a mismatched tag is an
// authentication failure, not a checksum mismatch, and is reported as
// such by callers.
type Decryptor interface {
	Decrypt(ciphertext, aad []byte) ([]byte, error)
}

// AESGCMDecryptor decrypts file-format AES-GCM modules. Each module is
// laid out on disk as a 4-byte little-endian length of everything that
// follows, a 12-byte nonce, the ciphertext, and a 16-byte GCM tag
// appended by the cipher.
type AESGCMDecryptor struct {
	aead cipher.AEAD
}

// NewAESGCMDecryptor builds a decryptor for a 16/24/32-byte AES key.
func NewAESGCMDecryptor(key []byte) (*AESGCMDecryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: bad AES key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: building GCM: %w", err)
	}
	return &AESGCMDecryptor{aead: aead}, nil
}

const (
	lengthPrefixSize = 4
	nonceSize        = 12
)

// Decrypt strips the length prefix and nonce from the on-disk module
// layout and authenticates/decrypts the remainder against aad.
func (d *AESGCMDecryptor) Decrypt(module, aad []byte) ([]byte, error) {
	if len(module) < lengthPrefixSize+nonceSize {
		return nil, fmt.Errorf("crypto: encrypted module too short: %d bytes", len(module))
	}
	n := binary.LittleEndian.Uint32(module[:lengthPrefixSize])
	body := module[lengthPrefixSize:]
	if uint32(len(body)) != n {
		return nil, fmt.Errorf("crypto: encrypted module length mismatch: header says %d, have %d", n, len(body))
	}
	nonce := body[:nonceSize]
	ciphertext := body[nonceSize:]
	plaintext, err := d.aead.Open(ciphertext[:0], nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM authentication failed: %w", err)
	}
	return plaintext, nil
}

// ModuleSize reads a module's 4-byte little-endian length prefix and
// returns the module's total on-disk size (prefix + nonce + ciphertext +
// tag), for a module whose size isn't recorded anywhere else -- a page
// header, dictionary page header, or bloom filter header, each of which
// must be read before its own plaintext length is known.
func ModuleSize(prefix []byte) (int, error) {
	if len(prefix) < lengthPrefixSize {
		return 0, fmt.Errorf("crypto: truncated module length prefix")
	}
	n := binary.LittleEndian.Uint32(prefix[:lengthPrefixSize])
	return lengthPrefixSize + int(n), nil
}

// ModuleAAD builds the AAD for a module tied to a specific row group and
// column. fileAAD is the per-file AAD (file_aad = aad_prefix ++
// aad_file_unique, per the encryption algorithm's settings); rowGroupOrdinal
// and columnOrdinal are -1 for modules not scoped to a row group/column
// (the footer); pageOrdinal is -1 for modules that aren't per-page.
func ModuleAAD(fileAAD []byte, module ModuleType, rowGroupOrdinal, columnOrdinal, pageOrdinal int) []byte {
	aad := make([]byte, 0, len(fileAAD)+1+2+2+2)
	aad = append(aad, fileAAD...)
	aad = append(aad, byte(module))
	if rowGroupOrdinal < 0 {
		return aad
	}
	aad = appendShort(aad, rowGroupOrdinal)
	if columnOrdinal < 0 {
		return aad
	}
	aad = appendShort(aad, columnOrdinal)
	if pageOrdinal < 0 {
		return aad
	}
	aad = appendShort(aad, pageOrdinal)
	return aad
}

func appendShort(b []byte, v int) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(v))
	return append(b, tmp[:]...)
}

// QuickUpdatePageAAD rewrites the trailing page-ordinal field of an AAD
// produced by ModuleAAD in place, avoiding a full rebuild when decrypting
// consecutive pages of the same column chunk.
func QuickUpdatePageAAD(aad []byte, pageOrdinal int) {
	n := len(aad)
	if n < 2 {
		return
	}
	binary.LittleEndian.PutUint16(aad[n-2:], uint16(pageOrdinal))
}
