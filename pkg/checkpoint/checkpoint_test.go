package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/logger"
)

func newTestManager(t *testing.T, username string) *Manager {
	t.Helper()
	mgr, err := NewManagerInDir(t.TempDir(), username, logger.NewNopLogger())
	require.NoError(t, err)
	return mgr
}

func TestCreateAndLoad(t *testing.T) {
	mgr := newTestManager(t, "creator")

	cp, err := mgr.Create("creator", "MS4w")
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cp.Version)
	assert.True(t, mgr.Exists())

	loaded, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "creator", loaded.Username)
	assert.Equal(t, "MS4w", loaded.Handle)
	assert.Empty(t, loaded.SeenIDs)
}

func TestLoadMissing(t *testing.T) {
	mgr := newTestManager(t, "nobody")

	cp, err := mgr.Load()
	assert.NoError(t, err)
	assert.Nil(t, cp)
	assert.False(t, mgr.Exists())
}

func TestRecordPage(t *testing.T) {
	mgr := newTestManager(t, "creator")
	cp, err := mgr.Create("creator", "MS4w")
	require.NoError(t, err)

	require.NoError(t, mgr.RecordPage(cp, 20, 1, []string{"1", "2"}))
	require.NoError(t, mgr.RecordPage(cp, 40, 2, []string{"3"}))
	// a cursor behind the saved one never moves it back
	require.NoError(t, mgr.RecordPage(cp, 10, 3, nil))

	loaded, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Cursor)
	assert.Equal(t, 3, loaded.Pages)
	assert.Equal(t, []string{"1", "2", "3"}, loaded.SeenIDs)
	assert.Equal(t, 3, loaded.TotalCollected)
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))
}

func TestSaveIsAtomic(t *testing.T) {
	mgr := newTestManager(t, "creator")
	_, err := mgr.Create("creator", "MS4w")
	require.NoError(t, err)

	_, err = os.Stat(mgr.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDelete(t *testing.T) {
	mgr := newTestManager(t, "creator")
	_, err := mgr.Create("creator", "MS4w")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete())
	assert.False(t, mgr.Exists())
	assert.NoError(t, mgr.Delete())
}

func TestLoadCorruptAndFutureVersion(t *testing.T) {
	mgr := newTestManager(t, "creator")

	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))
	_, err := mgr.Load()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"version": 99}`), 0644))
	_, err = mgr.Load()
	assert.ErrorContains(t, err, "newer than supported")
}

func TestUsernameIsSanitized(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManagerInDir(dir, "../evil/name", logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(mgr.Path()))
	assert.False(t, strings.Contains(filepath.Base(mgr.Path()), "/"))
}

func TestDataDirectory(t *testing.T) {
	assert.True(t, strings.HasSuffix(DataDirectory(), filepath.Join("ttscraper", "checkpoints")))
}
