package dictionary

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/searchcore/internal/errs"
)

func TestBuilderInternAssignsDenseIDsInInsertionOrder(t *testing.T) {
	b := NewBuilder()
	cat := b.Intern("cat")
	dog := b.Intern("dog")
	catAgain := b.Intern("cat")

	assert.EqualValues(t, 0, cat)
	assert.EqualValues(t, 1, dog)
	assert.Equal(t, cat, catAgain)
	assert.Equal(t, 2, b.NumTerms())
}

func TestBuilderLookupMissingTerm(t *testing.T) {
	b := NewBuilder()
	b.Intern("cat")

	_, ok := b.Lookup("dog")
	assert.False(t, ok)

	id, ok := b.Lookup("cat")
	require.True(t, ok)
	assert.EqualValues(t, 0, id)
}

func TestBuilderBumpDFAndDF(t *testing.T) {
	b := NewBuilder()
	id := b.Intern("cat")
	assert.EqualValues(t, 0, b.DF(id))

	b.BumpDF(id)
	b.BumpDF(id)
	assert.EqualValues(t, 2, b.DF(id))
}

func TestBuilderWriteToAndLoadRoundTrip(t *testing.T) {
	b := NewBuilder()
	cat := b.Intern("cat")
	dog := b.Intern("dog")
	b.BumpDF(cat)
	b.BumpDF(cat)
	b.BumpDF(dog)

	path := filepath.Join(t.TempDir(), "dictionary.bin")
	require.NoError(t, b.WriteTo(path))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumTerms())

	gotCat, ok := d.Lookup("cat")
	require.True(t, ok)
	assert.EqualValues(t, 2, d.DF(gotCat))

	gotDog, ok := d.Lookup("dog")
	require.True(t, ok)
	assert.EqualValues(t, 1, d.DF(gotDog))

	_, ok = d.Lookup("bird")
	assert.False(t, ok)
}

func TestLoadRejectsMismatchedDFCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.bin")
	f, err := os.Create(path)
	require.NoError(t, err)

	// one term, but a df section claiming zero entries
	require.NoError(t, binary.Write(f, binary.LittleEndian, uint32(1)))
	require.NoError(t, binary.Write(f, binary.LittleEndian, uint32(3)))
	_, err = f.WriteString("cat")
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, uint32(0))) // term_id
	require.NoError(t, binary.Write(f, binary.LittleEndian, uint32(0))) // df_count
	require.NoError(t, f.Close())

	_, err = Load(path)
	require.Error(t, err)
	assert.Equal(t, errs.Internal, errs.KindOf(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	assert.Equal(t, errs.IndexIoError, errs.KindOf(err))
}
