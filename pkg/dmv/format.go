package dmv

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NullLiteral is written for absent values in delimited exports.
const NullLiteral = "NULL"

// FormatTime renders a timestamp the way SQL Server DMV exports do:
// millisecond precision padded to seven fractional digits, UTC offset.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000") + "0000 +00:00"
}

// FormatFloat renders a float with the minimal digits that round-trip.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatHash renders raw bytes as an uppercase 0x-prefixed hex string,
// matching the sql_handle / query_hash display format.
func FormatHash(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// FormatBit renders a boolean as the 0/1 bit columns use.
func FormatBit(v bool) string {
	if v {
		return "1"
	}

	return "0"
}

func formatNullableString(s *string) string {
	if s == nil {
		return NullLiteral
	}

	return *s
}
