package contentenc

// Per-file header
//
// Format: [ "OrigSize" uint64 little endian ] [ "IV" 16 random bytes ]
//
// The header is followed by the AES-CBC ciphertext, which is OrigSize rounded
// up to the next multiple of 16 bytes.

import (
	"encoding/binary"
	"fmt"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
)

const (
	headerSizeLen = 8 // uint64
	headerIVLen   = cryptocore.IVLen
	// HeaderLen is the total header length
	HeaderLen = headerSizeLen + headerIVLen
)

// FileHeader represents the header stored in front of each envelope.
type FileHeader struct {
	// OrigSize is the exact plaintext length
	OrigSize uint64
	// IV is the CBC initialization vector, fresh for every file
	IV []byte
}

// Pack - serialize fileHeader object
func (h *FileHeader) Pack() []byte {
	if len(h.IV) != headerIVLen {
		panic("FileHeader object not properly initialized")
	}
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint64(buf[0:headerSizeLen], h.OrigSize)
	copy(buf[headerSizeLen:], h.IV)
	return buf
}

// ParseHeader - parse "buf" into fileHeader object
func ParseHeader(buf []byte) (*FileHeader, error) {
	if len(buf) != HeaderLen {
		return nil, fmt.Errorf("ParseHeader: invalid length: got %d, want %d", len(buf), HeaderLen)
	}
	var h FileHeader
	h.OrigSize = binary.LittleEndian.Uint64(buf[0:headerSizeLen])
	h.IV = make([]byte, headerIVLen)
	copy(h.IV, buf[headerSizeLen:])
	return &h, nil
}

// randomHeader - create new fileHeader object with a fresh IV
func randomHeader(cc *cryptocore.CryptoCore, origSize uint64) *FileHeader {
	return &FileHeader{
		OrigSize: origSize,
		IV:       cc.IVGenerator.Get(),
	}
}

// CipherSize returns the ciphertext length (without header) for a plaintext
// of "origSize" bytes.
func CipherSize(origSize uint64) uint64 {
	bs := uint64(cryptocore.BlockSize)
	return (origSize + bs - 1) / bs * bs
}

// EnvelopeSize returns the on-disk size of an envelope for a plaintext of
// "origSize" bytes.
func EnvelopeSize(origSize uint64) uint64 {
	return HeaderLen + CipherSize(origSize)
}
