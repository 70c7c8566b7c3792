package bytes

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMarshal(t *testing.T) {
	type TestStruct struct {
		B1 []byte
		B2 HexBytes
	}

	cases := []struct {
		input    []byte
		expected string
	}{
		{[]byte(``), `{"B1":"","B2":""}`},
		{[]byte(`a`), `{"B1":"YQ==","B2":"61"}`},
		{[]byte(`abc`), `{"B1":"YWJj","B2":"616263"}`},
		{[]byte("\x1a\x2b\x3c"), `{"B1":"Gis8","B2":"1A2B3C"}`},
	}

	for i, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("Case %d", i), func(t *testing.T) {
			ts := TestStruct{B1: tc.input, B2: tc.input}

			jsonBytes, err := json.Marshal(ts)
			require.NoError(t, err)
			require.Equal(t, tc.expected, string(jsonBytes))

			ts2 := TestStruct{}
			require.NoError(t, json.Unmarshal(jsonBytes, &ts2))
			require.NotNil(t, ts2.B2)
			require.True(t, ts2.B2.Equal(tc.input), "got %X", ts2.B2)
		})
	}
}

func TestParseHexBytes(t *testing.T) {
	cases := []struct {
		input    string
		expected HexBytes
		err      bool
	}{
		{"", HexBytes{}, false},
		{"1a2B3c", HexBytes{0x1a, 0x2b, 0x3c}, false},
		{"0x1A2B", HexBytes{0x1a, 0x2b}, false},
		{"0XFF", HexBytes{0xff}, false},
		{"abc", nil, true},
		{"zz", nil, true},
	}

	for i, tc := range cases {
		got, err := ParseHexBytes(tc.input)
		if tc.err {
			assert.Error(t, err, "#%d", i)
			continue
		}
		require.NoError(t, err, "#%d", i)
		assert.Equal(t, tc.expected, got, "#%d", i)
	}
}

func TestHexBytes_String(t *testing.T) {
	hs := HexBytes([]byte("test me"))
	require.Equal(t, "74657374206D65", hs.String())
	require.Equal(t, "74657374206D65", fmt.Sprintf("%X", hs))
	require.Equal(t, "74657374206D65", fmt.Sprintf("%v", hs))
}
