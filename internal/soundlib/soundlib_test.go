package soundlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureFiles(t *testing.T, dir string) {
	t.Helper()
	files := []string{"rain.wav", "wind.ogg", "notes.txt", "nested/thunder.flac"}
	for _, f := range files {
		full := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("fixture"), 0o644))
	}
}

func TestGormLibrary_Open_IndexesRecognisedExtensionsOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir)

	lib := NewGormLibrary(dir, filepath.Join(dir, "library.db"))
	require.NoError(t, lib.Open())
	defer lib.Close()

	samples, err := lib.Samples()
	require.NoError(t, err)

	var paths []string
	for _, s := range samples {
		paths = append(paths, s.Path)
	}
	assert.ElementsMatch(t, []string{"rain.wav", "wind.ogg", filepath.Join("nested", "thunder.flac")}, paths)
}

func TestGormLibrary_Open_IsIdempotentAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir)
	dbPath := filepath.Join(dir, "library.db")

	lib1 := NewGormLibrary(dir, dbPath)
	require.NoError(t, lib1.Open())
	firstSamples, err := lib1.Samples()
	require.NoError(t, err)
	require.NoError(t, lib1.Close())

	lib2 := NewGormLibrary(dir, dbPath)
	require.NoError(t, lib2.Open())
	defer lib2.Close()
	secondSamples, err := lib2.Samples()
	require.NoError(t, err)

	assert.Len(t, secondSamples, len(firstSamples))
}

func TestGormLibrary_SampleIDByPath_AndFullPath(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir)

	lib := NewGormLibrary(dir, filepath.Join(dir, "library.db"))
	require.NoError(t, lib.Open())
	defer lib.Close()

	id, ok := lib.SampleIDByPath("rain.wav")
	require.True(t, ok)

	full, err := lib.FullPathOfSample(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rain.wav"), full)
}

func TestGormLibrary_SampleIDByPath_UnknownPathNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir)

	lib := NewGormLibrary(dir, filepath.Join(dir, "library.db"))
	require.NoError(t, lib.Open())
	defer lib.Close()

	_, ok := lib.SampleIDByPath("nonexistent.wav")
	assert.False(t, ok)
}

func TestGormLibrary_FullPathOfSample_UnknownIDErrors(t *testing.T) {
	dir := t.TempDir()
	lib := NewGormLibrary(dir, filepath.Join(dir, "library.db"))
	require.NoError(t, lib.Open())
	defer lib.Close()

	_, err := lib.FullPathOfSample(999)
	assert.Error(t, err)
}

func TestGormLibrary_Samples_ReturnsDefensiveCopy(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir)

	lib := NewGormLibrary(dir, filepath.Join(dir, "library.db"))
	require.NoError(t, lib.Open())
	defer lib.Close()

	samples, err := lib.Samples()
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	samples[0].Path = "mutated"

	again, err := lib.Samples()
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Path)
}
