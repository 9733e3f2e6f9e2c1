package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s, _ := openTestStore(t)

	data := map[string]interface{}{
		"lambda": []interface{}{400.0, 500.0, 600.0},
		"A":      []interface{}{0.30103, 0.0, 0.0},
	}
	meta := map[string]interface{}{"columns": []interface{}{"A"}}

	entry, err := s.Save("scan-1", data, meta)
	require.NoError(t, err)
	assert.Equal(t, "scan-1", entry.Name)
	assert.NotEmpty(t, entry.Timestamp)
	assert.Equal(t, "scan-1", entry.Meta["name"])

	rec, err := s.Load("scan-1")
	require.NoError(t, err)
	if diff := cmp.Diff(data, rec.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "scan-1", rec.Meta["name"])
}

func TestSaveUpsertsByName(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Save("scan", map[string]interface{}{"v": 1.0}, nil)
	require.NoError(t, err)
	_, err = s.Save("scan", map[string]interface{}{"v": 2.0}, nil)
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rec, err := s.Load("scan")
	require.NoError(t, err)
	assert.Equal(t, 2.0, rec.Data["v"])
}

func TestListNewestFirst(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Save("older", nil, map[string]interface{}{"timestamp": "2024-01-02 03:04:05"})
	require.NoError(t, err)
	_, err = s.Save("newer", nil, map[string]interface{}{"timestamp": "2024-01-02 03:04:06"})
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "newer", entries[0].Name)
	assert.Equal(t, "older", entries[1].Name)
}

func TestLoadMissing(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Load("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry")
}

func TestSaveEmptyName(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Save("", nil, nil)
	require.Error(t, err)
}

func TestRename(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Save("before", map[string]interface{}{"v": 7.0}, nil)
	require.NoError(t, err)

	entry, err := s.Rename("before", "after")
	require.NoError(t, err)
	assert.Equal(t, "after", entry.Name)
	assert.Equal(t, "after", entry.Meta["name"])

	_, err = s.Load("before")
	require.Error(t, err)

	rec, err := s.Load("after")
	require.NoError(t, err)
	assert.Equal(t, 7.0, rec.Data["v"])
}

func TestLegacyJSONImport(t *testing.T) {
	dir := t.TempDir()

	legacy := Record{
		Meta: map[string]interface{}{"timestamp": "2024-05-01 10:00:00"},
		Data: map[string]interface{}{"lambda": []interface{}{400.0}},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old-scan.json"), raw, 0o644))
	// unparseable files are skipped, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.Load("old-scan")
	require.NoError(t, err)
	assert.Equal(t, "old-scan", rec.Meta["name"])
	assert.Equal(t, "2024-05-01 10:00:00", rec.Meta["timestamp"])
	if diff := cmp.Diff(legacy.Data, rec.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	_, err = s.Load("broken")
	require.Error(t, err)
}

func TestLegacyImportDoesNotOverwriteRow(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Save("scan", map[string]interface{}{"v": 1.0}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	stale, _ := json.Marshal(Record{Data: map[string]interface{}{"v": 99.0}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.json"), stale, 0o644))

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.Load("scan")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Data["v"])
}
