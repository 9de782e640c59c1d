package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ttscraper/pkg/metadata"
)

const (
	postsFileName  = "posts.json"
	reportFileName = "report.md"
)

// PostsFile is the document written to posts.json for one account
type PostsFile struct {
	Username     string          `json:"username"`
	SecUID       string          `json:"sec_uid"`
	CollectedAt  time.Time       `json:"collected_at"`
	State        string          `json:"state"`
	TotalPosts   int             `json:"total_posts"`
	Completeness float64         `json:"completeness"`
	Posts        []metadata.Post `json:"posts"`
}

// Manager handles output files, one folder per account
type Manager struct {
	outputDir         string
	createUserFolders bool
	mu                sync.Mutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string, createUserFolders bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir, createUserFolders: createUserFolders}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// UserDir returns the directory files for username are written to
func (m *Manager) UserDir(username string) string {
	if !m.createUserFolders {
		return m.outputDir
	}
	return filepath.Join(m.outputDir, safeName(username))
}

// PostsPath returns where posts for username are stored
func (m *Manager) PostsPath(username string) string {
	if m.createUserFolders {
		return filepath.Join(m.UserDir(username), postsFileName)
	}
	return filepath.Join(m.outputDir, safeName(username)+"_"+postsFileName)
}

// ReportPath returns where the markdown report for username is stored
func (m *Manager) ReportPath(username string) string {
	if m.createUserFolders {
		return filepath.Join(m.UserDir(username), reportFileName)
	}
	return filepath.Join(m.outputDir, safeName(username)+"_"+reportFileName)
}

// SavePosts replaces posts.json for the account atomically
func (m *Manager) SavePosts(doc *PostsFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.UserDir(doc.Username), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal posts: %w", err)
	}
	return writeAtomic(m.PostsPath(doc.Username), data)
}

// LoadPosts reads a previously written posts.json. It returns nil, nil when none exists.
func (m *Manager) LoadPosts(username string) (*PostsFile, error) {
	data, err := os.ReadFile(m.PostsPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read posts file: %w", err)
	}

	var doc PostsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse posts file: %w", err)
	}
	return &doc, nil
}

// MergePosts appends posts whose ids are not yet in existing, keeping order
func MergePosts(existing, incoming []metadata.Post) []metadata.Post {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]metadata.Post, 0, len(existing)+len(incoming))
	for _, p := range existing {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range incoming {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// SaveReport writes the markdown report for the account
func (m *Manager) SaveReport(username string, report []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.UserDir(username), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	return writeAtomic(m.ReportPath(username), report)
}

// writeAtomic writes through a temporary file and renames it into place
func writeAtomic(filename string, data []byte) error {
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = out.Write(data)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func safeName(username string) string {
	name := strings.TrimPrefix(strings.TrimSpace(username), "@")
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	if name == "" {
		return "_"
	}
	return name
}
