package dump

// reader.go loads a dump file in its declared encoding.
//
// Legacy MySQL dumps are usually latin1; newer exports are UTF-8 and may carry
// a BOM from Windows editors. The reader applies, in order:
//  1. BOM skipping
//  2. decoding from the declared charset to UTF-8
//
// Invalid byte sequences in a UTF-8 dump become U+FFFD rather than failing
// the read.

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the charset legacy dumps are written in.
const DefaultEncoding = "latin1"

// ErrInputNotFound is returned when the dump file does not exist.
var ErrInputNotFound = errors.New("input file not found")

// ErrUnknownEncoding is returned for charset names that cannot be resolved.
var ErrUnknownEncoding = errors.New("unsupported encoding")

// ReadFile reads the whole dump at path and returns it decoded to UTF-8.
func ReadFile(path, encodingName string) (string, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return "", fmt.Errorf("open dump %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(NewDecodingReader(f, enc))
	if err != nil {
		return "", fmt.Errorf("read dump %s: %w", path, err)
	}
	return string(data), nil
}

// NewDecodingReader wraps r with BOM skipping and, when enc is non-nil,
// decoding to UTF-8.
func NewDecodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	r = NewBOMSkippingReader(r)
	if enc == nil {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}

// LookupEncoding resolves a charset name. An empty name means DefaultEncoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEncoding
	}
	switch key {
	case "utf8", "utf-8":
		return unicode.UTF8, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// The UTF-8 BOM is 0xEF 0xBB 0xBF and is commonly added by Windows programs.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	pending    []byte // bytes read during the BOM check that are not a BOM
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		var buf [3]byte
		n, err := io.ReadFull(r.reader, buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
			r.pending = nil
		} else {
			r.pending = append([]byte(nil), buf[:n]...)
		}

		if err == io.EOF && len(r.pending) == 0 {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}
