package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TimestampSeparator separates the fixed-width fields of an external timestamp.
const TimestampSeparator = ':'

// ErrInvalidTimestamp is returned when a timestamp holds anything but digits and separators.
var ErrInvalidTimestamp = errors.New("models: invalid timestamp")

// Timestamp is the packed integer form of a colon-delimited timestamp
// (yy:mm:dd:hh:mm:ss -> yymmddhhmmss). Ordering and arithmetic happen on this key only.
type Timestamp uint64

// ParseTimestamp strips separators and leading zeros and parses the remaining digits.
func ParseTimestamp(raw string) (Timestamp, error) {
	digits := strings.Map(func(r rune) rune {
		if r == TimestampSeparator {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if digits == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}

	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return Timestamp(v), nil
}

// MustParseTimestamp is ParseTimestamp for literals known to be valid.
func MustParseTimestamp(raw string) Timestamp {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		panic(err)
	}
	return ts
}

// String renders the packed digits without leading zeros, the form used in every report line.
func (t Timestamp) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Format renders the external colon-delimited form, six two-digit fields.
func (t Timestamp) Format() string {
	packed := fmt.Sprintf("%012d", uint64(t))
	// wider than six fields: keep the overflow in the leading field
	head := len(packed) - 10

	var b strings.Builder
	b.WriteString(packed[:head])
	for i := head; i < len(packed); i += 2 {
		b.WriteByte(TimestampSeparator)
		b.WriteString(packed[i : i+2])
	}
	return b.String()
}

// Since returns t-u in raw ticks, or 0 when u is later than t.
func (t Timestamp) Since(u Timestamp) uint64 {
	if t < u {
		return 0
	}
	return uint64(t - u)
}

const (
	ticksPerDay   = 1_000_000
	calendarField = 100
)

// DayBounds returns the start of the day holding t and the start of the following day on
// the synthetic yy:mm:dd calendar, where each field runs 00-99 and carries into the next.
// The year wraps to 00 after 99, in which case end is smaller than start.
func (t Timestamp) DayBounds() (start, end Timestamp) {
	day := uint64(t) / ticksPerDay
	year := day / (calendarField * calendarField)
	month := (day / calendarField) % calendarField
	d := day % calendarField

	d++
	if d >= calendarField {
		d = 0
		month++
		if month >= calendarField {
			month = 0
			year++
			if year >= calendarField {
				year = 0
			}
		}
	}

	next := (year*calendarField+month)*calendarField + d
	return Timestamp(day * ticksPerDay), Timestamp(next * ticksPerDay)
}
