// Package contentenc encrypts and decrypts file contents.
//
// Every file is stored as an envelope: a header carrying the plaintext size
// and a fresh IV, followed by AES-256-CBC ciphertext. The last chunk is
// padded with the Filler byte up to the next 16-byte boundary; the size in
// the header is what makes decryption exact, the filler is never looked at.
//
// The envelope has no integrity protection. Garbled ciphertext decrypts
// without error to garbage.
package contentenc

import (
	"errors"
	"fmt"
	"io"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

const (
	// DefaultEncryptChunkSize is the plaintext chunk size for encryption
	DefaultEncryptChunkSize = 64 * 1024
	// DefaultDecryptChunkSize is the ciphertext chunk size for decryption.
	// It does not have to match the encryption side, only the 16-byte
	// alignment matters.
	DefaultDecryptChunkSize = 24 * 1024
	// Filler pads the last chunk to the block size
	Filler = ' '
)

// ContentEnc is used to encrypt and decrypt file contents with one secret.
type ContentEnc struct {
	// Cryptographic primitives
	cryptoCore *cryptocore.CryptoCore
	// Chunk sizes, both multiples of the block size
	encChunk int
	decChunk int
	// Buffer pools for the chunks
	encPool bPool
	decPool bPool
}

// New returns a ContentEnc for "secret" using the default chunk sizes.
func New(secret []byte) (*ContentEnc, error) {
	cc, err := cryptocore.New(secret)
	if err != nil {
		return nil, errkind.Crypto("init cipher", "", err)
	}
	return &ContentEnc{
		cryptoCore: cc,
		encChunk:   DefaultEncryptChunkSize,
		decChunk:   DefaultDecryptChunkSize,
		encPool:    newBPool(DefaultEncryptChunkSize),
		decPool:    newBPool(DefaultDecryptChunkSize),
	}, nil
}

// SetChunkSizes overrides the encryption and decryption chunk sizes.
func (be *ContentEnc) SetChunkSizes(enc, dec int) error {
	for _, v := range []int{enc, dec} {
		if v <= 0 || v%cryptocore.BlockSize != 0 {
			return fmt.Errorf("chunk size %d is not a positive multiple of %d", v, cryptocore.BlockSize)
		}
	}
	be.encChunk = enc
	be.decChunk = dec
	be.encPool = newBPool(enc)
	be.decPool = newBPool(dec)
	return nil
}

// EncryptStream reads "src" until EOF and writes the envelope to "dst".
// "origSize" must be the exact number of bytes "src" yields; it is written
// into the header before the first chunk is read.
func (be *ContentEnc) EncryptStream(dst io.Writer, src io.Reader, origSize uint64) (*FileHeader, error) {
	h := randomHeader(be.cryptoCore, origSize)
	if _, err := dst.Write(h.Pack()); err != nil {
		return nil, errkind.IO("write header", "", err)
	}
	enc := be.cryptoCore.NewCBCEncrypter(h.IV)
	buf := be.encPool.Get()
	defer be.encPool.Put(buf)
	var total uint64
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			total += uint64(n)
			chunk := buf[:n]
			if rem := n % cryptocore.BlockSize; rem != 0 {
				// Only the last chunk can be short
				padded := n + cryptocore.BlockSize - rem
				for i := n; i < padded; i++ {
					buf[i] = Filler
				}
				chunk = buf[:padded]
			}
			enc.CryptBlocks(chunk, chunk)
			if _, werr := dst.Write(chunk); werr != nil {
				return nil, errkind.IO("write", "", werr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errkind.IO("read", "", err)
		}
	}
	if total != origSize {
		return nil, errkind.IO("read", "", fmt.Errorf("size changed while encrypting: header says %d bytes, read %d", origSize, total))
	}
	return h, nil
}

// DecryptStream reads an envelope from "src" and writes exactly OrigSize
// plaintext bytes to "dst".
func (be *ContentEnc) DecryptStream(dst io.Writer, src io.Reader) (*FileHeader, error) {
	hbuf := make([]byte, HeaderLen)
	n, err := io.ReadFull(src, hbuf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, errkind.Cryptof("parse header", "", "envelope too short: %d bytes, header needs %d", n, HeaderLen)
	} else if err != nil {
		return nil, errkind.IO("read header", "", err)
	}
	h, err := ParseHeader(hbuf)
	if err != nil {
		return nil, errkind.Crypto("parse header", "", err)
	}
	dec := be.cryptoCore.NewCBCDecrypter(h.IV)
	buf := be.decPool.Get()
	defer be.decPool.Put(buf)
	remaining := h.OrigSize
	var extra uint64
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if n%cryptocore.BlockSize != 0 {
				return nil, errkind.Cryptof("decrypt", "", "ciphertext is not a multiple of %d bytes", cryptocore.BlockSize)
			}
			chunk := buf[:n]
			dec.CryptBlocks(chunk, chunk)
			w := uint64(n)
			if w > remaining {
				extra += w - remaining
				w = remaining
			}
			if w > 0 {
				if _, werr := dst.Write(chunk[:w]); werr != nil {
					return nil, errkind.IO("write", "", werr)
				}
				remaining -= w
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errkind.IO("read", "", err)
		}
	}
	if remaining > 0 {
		return nil, errkind.Cryptof("decrypt", "", "envelope truncated: %d plaintext bytes missing", remaining)
	}
	if extra >= cryptocore.BlockSize {
		tlog.Debug.Printf("DecryptStream: ignored %d bytes past the last block", extra)
	}
	return h, nil
}

// withPath fills in the path of a categorized error that was created at the
// stream level, where the file name is not known.
func withPath(err error, path string) error {
	var ce *errkind.CryptoError
	if errors.As(err, &ce) && ce.Path == "" {
		ce.Path = path
		return err
	}
	var ie *errkind.IOError
	if errors.As(err, &ie) && ie.Path == "" {
		ie.Path = path
		return err
	}
	return err
}
