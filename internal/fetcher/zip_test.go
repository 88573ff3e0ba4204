package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "bounds.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"tl_sldu.shp": "shp",
		"tl_sldu.dbf": "dbf",
		"nested/tl_sldu.prj": "prj",
	})

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	shpPath, ok := FindByExt(paths, ".SHP")
	require.True(t, ok)
	data, err := os.ReadFile(shpPath)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(data))

	_, ok = FindByExt(paths, ".geojson")
	assert.False(t, ok)
}

func TestExtractZIP_RejectsZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../evil.shp": "x"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal path")
}

func TestExtractZIP_MissingArchive(t *testing.T) {
	_, err := ExtractZIP(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	assert.Error(t, err)
}
