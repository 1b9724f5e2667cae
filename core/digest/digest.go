package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm names a supported hash function.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"

	// Default is used whenever a name is not recognized.
	Default = SHA256
)

// DefaultBufferSize is the read chunk size used by File.
const DefaultBufferSize = 64 * 1024

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{MD5, SHA1, SHA224, SHA256, SHA384, SHA512}

// Parse resolves an algorithm name. Unknown names fall back to sha256.
func Parse(name string) Algorithm {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case MD5, SHA1, SHA224, SHA256, SHA384, SHA512:
		return a
	default:
		return Default
	}
}

// New returns a fresh hash accumulator for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA224:
		return sha256.New224()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// ReadError reports a file that could not be opened or read to the end.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// File returns the hex digest of the file at path.
func File(path string, alg Algorithm) (string, error) {
	return FileBuffer(path, alg, DefaultBufferSize)
}

// FileBuffer is File with an explicit read chunk size.
// The chunk size never affects the resulting digest.
func FileBuffer(path string, alg Algorithm, bufSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	sum, err := Reader(f, alg, bufSize)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	return sum, nil
}

// Reader consumes r until EOF and returns the hex digest of everything read.
func Reader(r io.Reader, alg Algorithm, bufSize int) (string, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	h := alg.New()
	buf := make([]byte, bufSize)
	// Hide WriterTo/ReaderFrom so the chunk size is actually honored.
	if _, err := io.CopyBuffer(struct{ io.Writer }{h}, struct{ io.Reader }{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
