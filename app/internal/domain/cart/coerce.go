package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	radixLiteral   = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// StringToNumber converts text the way a browser's Number(string) does:
// surrounding whitespace is ignored, an empty string is zero, and anything
// that is not a numeric literal is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if radixLiteral.MatchString(s) {
		base := 16
		switch s[1] {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		n, err := strconv.ParseUint(s[2:], base, 64)
		if err != nil {
			// overflow of uint64 still parses as a (large) float in the host
			f, ferr := parseBigRadix(s[2:], base)
			if ferr != nil {
				return math.NaN()
			}
			return f
		}
		return float64(n)
	}

	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range values come back as ±Inf together with ErrRange
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

func parseBigRadix(digits string, base int) (float64, error) {
	var f float64
	for _, r := range digits {
		d, err := strconv.ParseUint(string(r), base, 8)
		if err != nil {
			return 0, err
		}
		f = f*float64(base) + float64(d)
	}
	return f, nil
}

// jsonToNumber coerces a stored JSON value to a number. A missing value is NaN.
func jsonToNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return math.NaN()
	}

	switch raw[0] {
	case 'n':
		return 0
	case 't':
		return 1
	case 'f':
		return 0
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return math.NaN()
		}
		return StringToNumber(s)
	case '[':
		return arrayToNumber(raw)
	case '{':
		return math.NaN()
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// arrayToNumber converts an array through its comma-joined text: [] is 0, a
// single element converts like its text, and longer arrays are NaN.
func arrayToNumber(raw json.RawMessage) float64 {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return math.NaN()
	}
	switch len(elems) {
	case 0:
		return 0
	case 1:
	default:
		return math.NaN()
	}

	elem := bytes.TrimSpace(elems[0])
	switch {
	case string(elem) == "null":
		return 0
	case elem[0] == '"', elem[0] == '[', elem[0] == '-', elem[0] >= '0' && elem[0] <= '9':
		return jsonToNumber(elem)
	}
	// booleans and objects have non-numeric text
	return math.NaN()
}

// isFalsy reports whether a stored JSON value would be treated as false by
// the "value || fallback" idiom: missing, null, false, 0 and "".
func isFalsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	switch string(raw) {
	case "null", "false", `""`:
		return true
	}
	if raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9') {
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f == 0
	}
	return false
}

// formatNumber renders f the way the host serializer writes numbers.
// Non-finite values have no JSON form and become null.
func formatNumber(f float64) json.RawMessage {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.RawMessage("null")
	}
	if f == 0 {
		// -0 serializes as 0
		return json.RawMessage("0")
	}
	return json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))
}
