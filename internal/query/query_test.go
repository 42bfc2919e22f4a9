package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/searchcore/internal/index"
)

const corpus = `{"id": "a", "title": "Cats and Dogs", "body": "the cat sat on the mat with the dog", "url": "http://example.com/a"}
{"id": "b", "title": "Dogs only", "body": "the dog barked loudly at the mailman"}
{"id": "c", "title": "Unrelated topic", "body": "quantum mechanics and relativity theory"}
{"id": "d", "title": "Astrophysics breakthrough", "body": "scientists observed a distant galaxy cluster"}
`

func buildTestReader(t *testing.T) *index.Reader {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "corpus.jsonl")
	require.NoError(t, os.WriteFile(inputPath, []byte(corpus), 0o644))

	outDir := filepath.Join(dir, "index")
	_, err := index.Build(context.Background(), index.BuildOptions{InputPath: inputPath, OutputDir: outDir})
	require.NoError(t, err)

	reader, err := index.Open(outDir, index.ReaderOptions{})
	require.NoError(t, err)
	return reader
}

func TestSearchRanksMoreRelevantDocHigher(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "dog", 10)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 2, resp.TotalHits)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestSearchUnknownTermYieldsNoHits(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "zzzznotaterm", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalHits)
	assert.Empty(t, resp.Results)
}

func TestSearchEmptyQueryReturnsZeroResponse(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalHits)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TookMs)
}

func TestSearchRespectsKCap(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "dog", 200)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), MaxK)
}

func TestSearchIncludesSnippetAndTitle(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "mailman", 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Snippet, "<em>")
	assert.NotEmpty(t, resp.Results[0].Title)
}

func TestSearchMatchesTitleTermsNotPresentInBody(t *testing.T) {
	reader := buildTestReader(t)
	engine := NewEngine(reader)

	resp, err := engine.Search(context.Background(), "astrophysics", 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Astrophysics breakthrough", resp.Results[0].Title)
}

func TestClampK(t *testing.T) {
	assert.Equal(t, 1, ClampK(0))
	assert.Equal(t, 1, ClampK(-5))
	assert.Equal(t, 100, ClampK(500))
	assert.Equal(t, 7, ClampK(7))
}
