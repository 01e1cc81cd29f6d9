package xjson

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(map[string]int{"a": 1}))
	assert.Contains(t, Pretty(make(chan int)), "<marshal error:")
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, map[string]string{"q": "<a&b>"}, false))
	assert.Equal(t, "{\"q\":\"<a&b>\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, []int{1}, true))
	assert.Equal(t, "[\n  1\n]\n", buf.String())

	assert.ErrorIs(t, Encode(&buf, func() {}, false), ErrMarshal)
}
