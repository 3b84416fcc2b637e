// Package cursor encodes connection ordering keys as opaque pagination tokens.
//
// A Key is the position of a row in a connection: its primary sort value plus
// the row id as tie-break. Tokens are URL-safe base64 of a versioned payload,
// so the same key always yields the same token and any token produced here
// decodes back to an equal Key.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hanpama/socialgraph/internal/failure"
)

const version = "v1"

// TimeLayout is the text form used for time sort values. It matches how the
// datastore stores timestamps so keys compare the same way on both sides.
const TimeLayout = "2006-01-02 15:04:05"

// ValueKind identifies the type of a sort value.
type ValueKind uint8

const (
	KindInt ValueKind = iota + 1
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "i"
	case KindText:
		return "s"
	default:
		return "?"
	}
}

// Value is a primary sort value. The zero Value is invalid.
type Value struct {
	Kind ValueKind
	Int  int64
	Text string
}

func Int(n int64) Value { return Value{Kind: KindInt, Int: n} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Time returns a text value in TimeLayout, UTC.
func Time(t time.Time) Value { return Text(t.UTC().Format(TimeLayout)) }

// Any returns the value as a database argument.
func (v Value) Any() any {
	if v.Kind == KindInt {
		return v.Int
	}
	return v.Text
}

func (v Value) String() string {
	if v.Kind == KindInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Text
}

// Compare orders values of the same kind. Int sorts before Text when kinds
// differ.
func (v Value) Compare(o Value) int {
	if v.Kind != o.Kind {
		if v.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if v.Kind == KindInt {
		switch {
		case v.Int < o.Int:
			return -1
		case v.Int > o.Int:
			return 1
		}
		return 0
	}
	return strings.Compare(v.Text, o.Text)
}

// Key is a row position: sort value first, id as tie-break.
type Key struct {
	Sort Value
	ID   int64
}

// IDKey is a key for connections ordered by id alone.
func IDKey(id int64) Key { return Key{Sort: Int(id), ID: id} }

// Compare orders keys by sort value, then id.
func (k Key) Compare(o Key) int {
	if c := k.Sort.Compare(o.Sort); c != 0 {
		return c
	}
	switch {
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	}
	return 0
}

// Encode returns the opaque token for k.
func Encode(k Key) string {
	payload := version + "|" + k.Sort.Kind.String() + "|" + strconv.FormatInt(k.ID, 10) + "|" + k.Sort.String()
	return base64.URLEncoding.EncodeToString([]byte(payload))
}

// Decode parses a token produced by Encode. Every failure wraps
// failure.ErrInvalidCursor.
func Decode(token string) (Key, error) {
	if token == "" {
		return Key{}, failure.InvalidCursor("empty cursor")
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Key{}, failure.InvalidCursor("cursor %q is not base64", token)
	}
	// the sort text may itself contain the separator, so split at most 4 ways
	parts := strings.SplitN(string(raw), "|", 4)
	if len(parts) != 4 {
		return Key{}, failure.InvalidCursor("cursor %q is malformed", token)
	}
	if parts[0] != version {
		return Key{}, failure.InvalidCursor("cursor version %q is not supported", parts[0])
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Key{}, failure.InvalidCursor("cursor id %q is not an integer", parts[2])
	}
	var sort Value
	switch parts[1] {
	case KindInt.String():
		n, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return Key{}, failure.InvalidCursor("cursor sort value %q is not an integer", parts[3])
		}
		sort = Int(n)
	case KindText.String():
		sort = Text(parts[3])
	default:
		return Key{}, failure.InvalidCursor("cursor sort kind %q is unknown", parts[1])
	}
	return Key{Sort: sort, ID: id}, nil
}

// MustDecode is Decode for tests and fixtures.
func MustDecode(token string) Key {
	k, err := Decode(token)
	if err != nil {
		panic(fmt.Sprintf("cursor: %v", err))
	}
	return k
}
