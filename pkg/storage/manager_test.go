package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/metadata"
)

func posts(ids ...string) []metadata.Post {
	out := make([]metadata.Post, len(ids))
	for i, id := range ids {
		out[i] = metadata.Post{ID: id, Description: "post " + id, Video: &metadata.Video{}}
	}
	return out
}

func TestManagerSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, true)
	require.NoError(t, err)

	doc := &PostsFile{
		Username:     "someone",
		CollectedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		State:        "done",
		TotalPosts:   2,
		Completeness: 0.5,
		Posts:        posts("1", "2"),
	}
	require.NoError(t, m.SavePosts(doc))

	assert.FileExists(t, filepath.Join(dir, "someone", "posts.json"))
	assert.NoFileExists(t, filepath.Join(dir, "someone", "posts.json.tmp"))

	loaded, err := m.LoadPosts("someone")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, doc.TotalPosts, loaded.TotalPosts)
	assert.Equal(t, "done", loaded.State)
	assert.Len(t, loaded.Posts, 2)
	assert.Equal(t, "2", loaded.Posts[1].ID)
}

func TestManagerLoadMissing(t *testing.T) {
	m, err := NewManager(t.TempDir(), true)
	require.NoError(t, err)

	doc, err := m.LoadPosts("nobody")
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestManagerLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, true)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0755))
	require.NoError(t, os.WriteFile(m.PostsPath("broken"), []byte("{"), 0644))

	_, err = m.LoadPosts("broken")
	assert.Error(t, err)
}

func TestManagerFlatLayout(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "someone_posts.json"), m.PostsPath("@someone"))
	assert.Equal(t, filepath.Join(dir, "someone_report.md"), m.ReportPath("someone"))

	require.NoError(t, m.SaveReport("someone", []byte("# report\n")))
	data, err := os.ReadFile(m.ReportPath("someone"))
	require.NoError(t, err)
	assert.Equal(t, "# report\n", string(data))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "someone", safeName(" @someone "))
	assert.Equal(t, "a_b", safeName("a/b"))
	assert.Equal(t, "_", safeName(""))
	assert.NotContains(t, safeName("../etc"), "..")
}

func TestMergePosts(t *testing.T) {
	merged := MergePosts(posts("1", "2", "2"), posts("2", "3"))

	ids := make([]string, len(merged))
	for i, p := range merged {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Empty(t, MergePosts(nil, nil))
}
