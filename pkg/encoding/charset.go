// Package encoding converts snapshot text fields to and from UTF-8.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned by ParseCharset for unsupported names.
var ErrUnknownCharset = errors.New("unknown charset")

// Charset names a text encoding used by string fields in a snapshot.
type Charset string

const (
	UTF8     Charset = "utf-8"
	ShiftJIS Charset = "shift-jis"
	EUCKR    Charset = "euc-kr"
)

// ParseCharset accepts the common spellings of the supported charsets.
func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8":
		return UTF8, nil
	case "sjis", "shift-jis", "shift_jis", "shiftjis":
		return ShiftJIS, nil
	case "euckr", "euc-kr":
		return EUCKR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}
}

func (c Charset) codec() xencoding.Encoding {
	switch c {
	case ShiftJIS:
		return japanese.ShiftJIS
	case EUCKR:
		return korean.EUCKR
	default:
		return nil
	}
}

// Decode converts data in charset c to a UTF-8 string. Trailing NUL bytes
// are dropped. Returns the raw bytes as a string if conversion fails.
func (c Charset) Decode(data []byte) string {
	data = TrimNullBytes(data)
	enc := c.codec()
	if enc == nil {
		return string(data)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// Encode converts a UTF-8 string to charset c.
// Returns the original bytes if conversion fails.
func (c Charset) Encode(s string) []byte {
	enc := c.codec()
	if enc == nil {
		return []byte(s)
	}
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
