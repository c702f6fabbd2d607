package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"id":1,"name":"ann"}`+"\n", 200))

	for _, alg := range []Algorithm{None, Gzip, Snappy, S2, Zstd, LZ4} {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				compressed, err := Compress(payload, alg, level)
				require.NoError(t, err)
				if alg != None {
					assert.Less(t, len(compressed), len(payload))
				}

				out, err := Decompress(compressed, alg)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(payload, out))
			})
		}
	}
}

func TestParse(t *testing.T) {
	alg, err := Parse("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, alg)

	alg, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, alg)

	_, err = Parse("brotli")
	assert.Error(t, err)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, ".gz", Extension(Gzip))
	assert.Equal(t, "", Extension(None))
	assert.Equal(t, Zstd, FromPath("out/customers.jsonl.zst"))
	assert.Equal(t, LZ4, FromPath("part-0001.jsonl.LZ4"))
	assert.Equal(t, None, FromPath("customers.jsonl"))
}
