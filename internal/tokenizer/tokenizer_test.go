package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSplitsApostrophes(t *testing.T) {
	got := Tokenize("don't stop")
	assert.Equal(t, []string{"don", "stop"}, got)
}

func TestTokenizeLowercasesASCIIOnly(t *testing.T) {
	got := Tokenize("Rust RUST café")
	require.Len(t, got, 3)
	assert.Equal(t, "rust", got[0])
	assert.Equal(t, "rust", got[1])
	assert.Equal(t, "café", got[2])
}

func TestTokenizeDropsStopwordsAndLengthOutliers(t *testing.T) {
	got := Tokenize("the a of search an engine xx")
	assert.Equal(t, []string{"search", "engine", "xx"}, got)
}

func TestTokenizeDropsOverlongTokens(t *testing.T) {
	long := ""
	for i := 0; i < 41; i++ {
		long += "a"
	}
	got := Tokenize(long + " ok")
	assert.Equal(t, []string{"ok"}, got)
}

func TestTokenizeIsDeterministic(t *testing.T) {
	text := "Rust inverted index, Rust search engine!"
	a := Tokenize(text)
	b := Tokenize(text)
	assert.Equal(t, a, b)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   ...  "))
}
