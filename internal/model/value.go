package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Change-log values are stored as a one-letter type tag, a colon, and the
// payload. Strings are NFC-normalised so that equal text always encodes to
// equal bytes regardless of the client that produced it.
const (
	tagNull   = "0:"
	tagNumber = "N:"
	tagString = "S:"
)

// EncodeValue serialises a column value for the change log.
func EncodeValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return tagNull, nil
	case string:
		return tagString + norm.NFC.String(val), nil
	case bool:
		if val {
			return tagNumber + "1", nil
		}
		return tagNumber + "0", nil
	case int:
		return tagNumber + strconv.Itoa(val), nil
	case int64:
		return tagNumber + strconv.FormatInt(val, 10), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", fmt.Errorf("encode value: non-finite number %v", val)
		}
		return tagNumber + strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("encode value: unsupported type %T", v)
	}
}

// DecodeValue parses a value produced by EncodeValue. Numbers decode to int64
// when they carry no fractional part and to float64 otherwise.
func DecodeValue(s string) (any, error) {
	switch {
	case s == tagNull:
		return nil, nil
	case strings.HasPrefix(s, tagString):
		return s[len(tagString):], nil
	case strings.HasPrefix(s, tagNumber):
		raw := s[len(tagNumber):]
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("decode value %q: %w", s, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("decode value %q: unknown type tag", s)
	}
}

// NormalizeName folds a display name for identity comparisons. Names that
// differ only in case, surrounding space or Unicode composition compare
// equal after normalisation.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFC.String(name)))
}
