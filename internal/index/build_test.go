package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/searchcore/internal/errs"
)

const sampleCorpus = `{"id": "a", "title": "Cats and Dogs", "body": "the cat sat on the mat with the dog"}
{"id": "b", "title": "Dogs only", "body": "the dog barked at the mailman"}
{"id": "c", "title": "Unrelated", "body": "quantum mechanics and relativity theory"}
{"id": "a", "title": "Duplicate of a", "body": "this should be skipped"}
not json at all
{"id": "d", "title": "", "body": "missing title is malformed"}
`

func writeCorpus(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestBuildProducesSealedIndex(t *testing.T) {
	input := writeCorpus(t, sampleCorpus)
	outDir := filepath.Join(t.TempDir(), "index")

	stats, err := Build(context.Background(), BuildOptions{InputPath: input, OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.NumDocs)
	assert.Equal(t, 1, stats.DuplicateExtIDs)
	assert.Equal(t, 2, stats.MalformedLines)
	assert.Greater(t, stats.NumTerms, 0)

	for _, name := range []string{"meta.json", "dictionary.bin", "docs.bin", "doc_id_map.bin", "postings"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestBuildThenOpenRoundTrips(t *testing.T) {
	input := writeCorpus(t, sampleCorpus)
	outDir := filepath.Join(t.TempDir(), "index")

	_, err := Build(context.Background(), BuildOptions{InputPath: input, OutputDir: outDir, Workers: 2})
	require.NoError(t, err)

	reader, err := Open(outDir, ReaderOptions{})
	require.NoError(t, err)

	assert.EqualValues(t, 3, reader.NumDocs())

	termID, ok := reader.LookupTerm("dog")
	require.True(t, ok)
	assert.EqualValues(t, 2, reader.DF(termID))

	plist, err := reader.Postings(termID)
	require.NoError(t, err)
	assert.Len(t, plist, 2)
	for i := 1; i < len(plist); i++ {
		assert.Less(t, plist[i-1].DocID, plist[i].DocID, "postings must be sorted ascending by doc_id")
	}

	_, ok = reader.LookupTerm("relativity")
	assert.True(t, ok)

	meta, err := reader.DocMeta(0)
	require.NoError(t, err)
	assert.NotEmpty(t, meta.Title)

	docID, ok := reader.DocIDForExtID("a")
	require.True(t, ok)
	text, err := reader.Text(docID)
	require.NoError(t, err)
	assert.Contains(t, text, "Cats and Dogs")
}

func TestBuildRemovesPartialOutputOnFailure(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "index")
	_, err := Build(context.Background(), BuildOptions{InputPath: "/nonexistent/corpus.jsonl", OutputDir: outDir})
	require.Error(t, err)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "partial output directory should be removed on failure")
}

func TestBuildReportsSkippedLines(t *testing.T) {
	input := writeCorpus(t, sampleCorpus)
	outDir := filepath.Join(t.TempDir(), "index")

	var skipped []string
	_, err := Build(context.Background(), BuildOptions{
		InputPath: input,
		OutputDir: outDir,
		OnSkip: func(lineNo int, kind errs.Kind, detail string) {
			skipped = append(skipped, detail)
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, skipped)
}
