package bytes

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a hash or other opaque byte string that renders as upper case
// hexadecimal in JSON, logs and command output.
type HexBytes []byte

// ParseHexBytes decodes a hexadecimal string in either case, with or without
// a leading 0x. An empty string decodes to an empty, non-nil value.
func ParseHexBytes(s string) (HexBytes, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return HexBytes{}, nil
	}
	dec, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", s, err)
	}
	return HexBytes(dec), nil
}

// MarshalText encodes bz as upper case hexadecimal digits.
func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(bz.String()), nil
}

// UnmarshalText decodes what ParseHexBytes accepts.
func (bz *HexBytes) UnmarshalText(data []byte) error {
	dec, err := ParseHexBytes(string(data))
	if err != nil {
		return err
	}
	*bz = dec
	return nil
}

// Bytes returns bz as a plain byte slice.
func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return strings.ToUpper(hex.EncodeToString(bz))
}

// Format writes bz as upper case hexadecimal for every verb except %p.
func (bz HexBytes) Format(s fmt.State, verb rune) {
	if verb == 'p' {
		fmt.Fprintf(s, "%p", []byte(bz))
		return
	}
	fmt.Fprint(s, bz.String())
}

func (bz HexBytes) Equal(b []byte) bool {
	return bytes.Equal(bz, b)
}
