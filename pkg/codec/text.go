package codec

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// DecodeString converts Windows-1252 bytes to a Go string.
func DecodeString(b []byte) (string, error) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode string: %w", err)
	}
	return string(out), nil
}

// EncodeString converts s to Windows-1252. Runes outside the code page are
// an error.
func EncodeString(s string) ([]byte, error) {
	out, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode string %q: %w", s, err)
	}
	return out, nil
}
