package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
)

// CurrentVersion is written to every checkpoint file
const CurrentVersion = 1

// Checkpoint is the resumable state of one account's crawl
type Checkpoint struct {
	Username       string    `json:"username"`
	Handle         string    `json:"sec_uid"`
	Cursor         int       `json:"cursor"`
	Pages          int       `json:"pages"`
	SeenIDs        []string  `json:"seen_ids"`
	TotalCollected int       `json:"total_collected"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

// Manager handles checkpoint operations for one username
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// DataDirectory returns the directory checkpoints live in
func DataDirectory() string {
	return filepath.Join(xdg.DataHome, config.AppName, "checkpoints")
}

// NewManager creates a checkpoint manager under the XDG data directory
func NewManager(username string, log logger.Logger) (*Manager, error) {
	return NewManagerInDir(DataDirectory(), username, log)
}

// NewManagerInDir creates a checkpoint manager storing files in dir
func NewManagerInDir(dir, username string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(username)
	return &Manager{
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", name)),
		logger:         log.WithField("username", username),
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create creates and saves a fresh checkpoint
func (m *Manager) Create(username, handle string) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		Username:  username,
		Handle:    handle,
		SeenIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   CurrentVersion,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"path": m.checkpointPath,
	})
	return checkpoint, nil
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > CurrentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, CurrentVersion)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"cursor":          checkpoint.Cursor,
		"total_collected": checkpoint.TotalCollected,
		"updated_at":      checkpoint.UpdatedAt,
	})
	return &checkpoint, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := writeFileAtomic(m.checkpointPath, data); err != nil {
		return err
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"cursor":          checkpoint.Cursor,
		"total_collected": checkpoint.TotalCollected,
	})
	return nil
}

// RecordPage advances the checkpoint after a page and saves it
func (m *Manager) RecordPage(checkpoint *Checkpoint, cursor, page int, newIDs []string) error {
	if cursor > checkpoint.Cursor {
		checkpoint.Cursor = cursor
	}
	checkpoint.Pages = page
	checkpoint.SeenIDs = append(checkpoint.SeenIDs, newIDs...)
	checkpoint.TotalCollected = len(checkpoint.SeenIDs)
	return m.Save(checkpoint)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Age returns how long ago the checkpoint was last written
func (c *Checkpoint) Age() time.Duration {
	return time.Since(c.UpdatedAt)
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}
