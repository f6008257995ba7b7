package cache

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Decoder converts the raw bytes of a stored value into T.
type Decoder[T any] func(raw []byte) (T, error)

// Bytes returns the raw value unchanged.
func Bytes(raw []byte) ([]byte, error) {
	return raw, nil
}

// String decodes the value as UTF-8 text. Invalid sequences fail.
func String(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decode text: invalid UTF-8 in %q", raw)
	}
	return string(raw), nil
}

// Int decodes the value as a base-10 integer.
func Int(raw []byte) (int64, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode int: %w", err)
	}
	return n, nil
}

// Float decodes the value as a floating-point number.
func Float(raw []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("decode float: %w", err)
	}
	return f, nil
}
