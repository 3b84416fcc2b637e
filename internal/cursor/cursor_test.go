package cursor

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/socialgraph/internal/failure"
)

func TestRoundTrip(t *testing.T) {
	keys := []Key{
		IDKey(1),
		IDKey(0),
		{Sort: Int(-42), ID: 7},
		{Sort: Text(""), ID: 3},
		{Sort: Text("a|b|c"), ID: 9},
		{Sort: Text("unicode ✓"), ID: 1 << 40},
		{Sort: Time(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)), ID: 12},
	}
	for _, k := range keys {
		token := Encode(k)
		got, err := Decode(token)
		require.NoError(t, err, "token %q", token)
		require.Equal(t, k, got)
		require.Equal(t, token, Encode(got))
	}
}

func TestDecodeRejects(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"empty":        "",
		"not base64":   "!!!",
		"too short":    enc("v1|i|3"),
		"bad version":  enc("v9|i|3|3"),
		"bad kind":     enc("v1|x|3|3"),
		"bad id":       enc("v1|i|three|3"),
		"bad int sort": enc("v1|i|3|three"),
		"raw id":       "MTA=",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(token)
			require.ErrorIs(t, err, failure.ErrInvalidCursor)
		})
	}
}

func TestKeyCompare(t *testing.T) {
	a := Key{Sort: Text("2024-01-01 00:00:00"), ID: 5}
	b := Key{Sort: Text("2024-01-01 00:00:00"), ID: 6}
	c := Key{Sort: Text("2024-01-02 00:00:00"), ID: 1}
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, -1, b.Compare(c))
	require.Equal(t, 1, c.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	require.Equal(t, -1, IDKey(9).Compare(Key{Sort: Text("0"), ID: 0}))
}

func TestTimeIsUTC(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	v := Time(time.Date(2024, 3, 1, 9, 0, 0, 0, loc))
	require.Equal(t, Text("2024-03-01 00:00:00"), v)
}
