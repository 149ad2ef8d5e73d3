package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/go-sdk/script"
)

// MaxMessageLen is the largest memo accepted by MessageScript.
const MaxMessageLen = 220

// ParseAmount converts a display amount such as "12.5" into atoms for the
// given number of decimals. Excess precision is an error, not rounded.
func ParseAmount(display string, decimals uint8) (uint64, error) {
	s := strings.TrimSpace(display)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, display, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	v, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, display, err)
	}
	return v, nil
}

// FormatAmount renders atoms with the given number of decimals, trimming
// trailing zeros of the fractional part.
func FormatAmount(atoms uint64, decimals uint8) string {
	s := strconv.FormatUint(atoms, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// MessageScript builds OP_RETURN <message>.
func MessageScript(message string) ([]byte, error) {
	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(message) > MaxMessageLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLong, len(message), MaxMessageLen)
	}
	s := &script.Script{}
	*s = append(*s, script.OpRETURN)
	if err := s.AppendPushData([]byte(message)); err != nil {
		return nil, fmt.Errorf("token: message push: %w", err)
	}
	return []byte(*s), nil
}
