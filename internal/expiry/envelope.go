package expiry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/mo"
)

// Marker is written into every envelope under MarkerField. Nothing reads it
// back yet; it exists so the format can be recognized later.
const (
	Marker      = "ucs"
	MarkerField = "UNIQUE_KEY"
)

// isoLayout matches the timestamps browsers emit for Date.toISOString.
// Years outside 0..9999 use the six-digit signed form, e.g. +010024-01-31.
const (
	isoLayout     = "2006-01-02T15:04:05.000Z"
	isoTailLayout = "-01-02T15:04:05.000Z"
)

// StoredItem is the payload written by the timed store: the caller's value
// plus the instant after which it must not be returned.
type StoredItem[T any] struct {
	Value      T      `json:"value"`
	Expiration string `json:"expiration"`
}

// NewStoredItem builds the item for value expiring at exp.
func NewStoredItem[T any](value T, exp time.Time) StoredItem[T] {
	return StoredItem[T]{Value: value, Expiration: FormatISO(exp)}
}

type envelope struct {
	Marker     string `json:"UNIQUE_KEY"`
	Expiration string `json:"expiration"`
	Value      any    `json:"value"`
}

// Encode wraps v with the marker and expire. A zero expire is replaced with
// the default span from now.
func Encode(v any, expire time.Time) (string, error) {
	if expire.IsZero() {
		expire = After(now())
	}
	b, err := json.Marshal(envelope{Marker: Marker, Expiration: FormatISO(expire), Value: v})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Entry is a decoded StoredItem with its expiration parsed.
type Entry[T any] struct {
	Value      T
	Expiration time.Time
}

// Live reports whether the entry is still readable at t.
func (e Entry[T]) Live(t time.Time) bool {
	return e.Expiration.After(t)
}

type wireEnvelope struct {
	Value *wireItem `json:"value"`
}

type wireItem struct {
	Value      json.RawMessage `json:"value"`
	Expiration *string         `json:"expiration"`
}

// Decode parses raw as an envelope written by Encode around a StoredItem.
// Absent input, malformed JSON, a missing inner value, a missing or
// unparseable inner expiration, or a value that does not fit T all report
// false. An explicit null value is a hit with the zero T. Decode never fails
// loudly: foreign or corrupt data is simply not an entry.
func Decode[T any](raw mo.Option[string]) (Entry[T], bool) {
	var out Entry[T]
	s, ok := raw.Get()
	if !ok {
		return out, false
	}
	var env wireEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return out, false
	}
	if env.Value == nil || env.Value.Expiration == nil {
		return out, false
	}
	exp, err := ParseISO(*env.Value.Expiration)
	if err != nil {
		return out, false
	}
	if len(env.Value.Value) == 0 {
		return out, false
	}
	if err := json.Unmarshal(env.Value.Value, &out.Value); err != nil {
		return out, false
	}
	out.Expiration = exp
	return out, true
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	u := t.UTC()
	y := u.Year()
	if y >= 0 && y <= 9999 {
		return u.Format(isoLayout)
	}
	sign := "+"
	if y < 0 {
		sign, y = "-", -y
	}
	return fmt.Sprintf("%s%06d%s", sign, y, u.Format(isoTailLayout))
}

// ParseISO accepts any RFC 3339 timestamp, including FormatISO output with an
// extended year.
func ParseISO(s string) (time.Time, error) {
	if len(s) < 8 || (s[0] != '+' && s[0] != '-') {
		return time.Parse(time.RFC3339Nano, s)
	}
	year, err := strconv.Atoi(s[1:7])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse extended year %q: %w", s, err)
	}
	if s[0] == '-' {
		year = -year
	}
	// 2000 is a leap year, so Feb 29 survives until the real year is applied.
	rest, err := time.Parse(time.RFC3339Nano, "2000"+s[7:])
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, rest.Month(), rest.Day(), rest.Hour(), rest.Minute(), rest.Second(),
		rest.Nanosecond(), rest.Location()), nil
}

// now is swapped in tests.
var now = time.Now
