package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/razou/dev-ops/internal/domain"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// StateSchemaVersion defines the current schema version for state files
	StateSchemaVersion = "2.0.0"
	// StateFilePermissions defines the permissions for state files
	StateFilePermissions = 0600
	// StateDirPermissions defines the permissions for state directory
	StateDirPermissions = 0700
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// ErrStateNotFound is returned when no checkpoint file exists for a session.
var ErrStateNotFound = errors.New("release session state not found")

// StateRepository persists release session checkpoints.
type StateRepository interface {
	Save(ctx context.Context, state *domain.SessionState) error
	Load(ctx context.Context, sessionID string) (*domain.SessionState, error)
	LoadLatest(ctx context.Context) (*domain.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// StateMetadata contains metadata about the state file
type StateMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateWrapper wraps the state with metadata
type StateWrapper struct {
	Metadata StateMetadata        `json:"metadata"`
	State    *domain.SessionState `json:"state"`
}

// JSONStateRepository implements StateRepository using JSON files guarded by flock.
// Lock files live on the OS filesystem, so fs should be rooted where stateDir resolves.
type JSONStateRepository struct {
	fs       afero.Fs
	stateDir string
	log      *zap.SugaredLogger
	mu       sync.RWMutex
}

// NewJSONStateRepository creates a new JSON-based state repository
func NewJSONStateRepository(fs afero.Fs, stateDir string, log *zap.SugaredLogger) StateRepository {
	if stateDir == "" {
		stateDir = ".release-state"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &JSONStateRepository{
		fs:       fs,
		stateDir: stateDir,
		log:      log,
	}
}

// Save writes the session atomically under an exclusive lock.
func (r *JSONStateRepository) Save(ctx context.Context, state *domain.SessionState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("cannot save state without a session id")
	}
	if err := r.fs.MkdirAll(r.stateDir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}
	unlock, err := r.lock(ctx, state.SessionID, false)
	if err != nil {
		return err
	}
	defer unlock()
	wrapper := StateWrapper{
		Metadata: StateMetadata{
			SchemaVersion: StateSchemaVersion,
			CreatedAt:     state.StartedAt,
			UpdatedAt:     time.Now(),
		},
		State: state,
	}
	stateData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state for checksum: %w", err)
	}
	wrapper.Metadata.Checksum = checksum(stateData)
	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state wrapper: %w", err)
	}
	filename := r.stateFilename(state.SessionID)
	if err := r.writeAtomic(filename, data); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := r.updateLatestLink(filename); err != nil {
		return fmt.Errorf("failed to update latest link: %w", err)
	}
	r.log.Debugw("Saved release session", "session_id", state.SessionID, "status", state.Status)
	return nil
}

// Load reads a session and verifies its schema and checksum.
func (r *JSONStateRepository) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	exists, err := r.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, sessionID)
	}
	unlock, err := r.lock(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	defer unlock()
	data, err := afero.ReadFile(r.fs, r.stateFilename(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var wrapper StateWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state wrapper: %w", err)
	}
	if wrapper.Metadata.SchemaVersion != StateSchemaVersion {
		return nil, fmt.Errorf("incompatible schema version: expected %s, got %s",
			StateSchemaVersion, wrapper.Metadata.SchemaVersion)
	}
	if wrapper.State == nil {
		return nil, fmt.Errorf("state file for session %s is empty", sessionID)
	}
	stateData, err := json.Marshal(wrapper.State)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state for checksum validation: %w", err)
	}
	if wrapper.Metadata.Checksum != checksum(stateData) {
		return nil, fmt.Errorf("state checksum mismatch: data may be corrupted")
	}
	return wrapper.State, nil
}

// LoadLatest loads the session that was saved last.
func (r *JSONStateRepository) LoadLatest(ctx context.Context) (*domain.SessionState, error) {
	r.mu.RLock()
	data, err := afero.ReadFile(r.fs, r.latestLink())
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no session recorded", ErrStateNotFound)
		}
		return nil, fmt.Errorf("failed to read latest link: %w", err)
	}
	sessionID := extractSessionID(strings.TrimSpace(string(data)))
	if sessionID == "" {
		return nil, fmt.Errorf("invalid latest link target: %s", string(data))
	}
	return r.Load(ctx, sessionID)
}

// Delete removes a session and its lock file.
func (r *JSONStateRepository) Delete(ctx context.Context, sessionID string) error {
	exists, err := r.Exists(ctx, sessionID)
	if err != nil || !exists {
		return err
	}
	unlock, err := r.lock(ctx, sessionID, false)
	if err != nil {
		return err
	}
	if err := r.fs.Remove(r.stateFilename(sessionID)); err != nil && !os.IsNotExist(err) {
		unlock()
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	unlock()
	if err := r.fs.Remove(r.lockFilename(sessionID)); err != nil && !os.IsNotExist(err) {
		r.log.Warnw("Failed to remove lock file", "session_id", sessionID, "error", err)
	}
	return nil
}

// Exists checks if a session state exists
func (r *JSONStateRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	_, err := r.fs.Stat(r.stateFilename(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check state file: %w", err)
	}
	return true, nil
}

// lock takes an exclusive or shared lock on the session and returns its release func.
func (r *JSONStateRepository) lock(ctx context.Context, sessionID string, shared bool) (func(), error) {
	lock := flock.New(r.lockFilename(sessionID))
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lock.TryRLockContext(lockCtx, LockRetryInterval)
	} else {
		locked, err = lock.TryLockContext(lockCtx, LockRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for session %s: %w", sessionID, err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire lock for session %s within %s", sessionID, LockTimeout)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.log.Warnw("Failed to unlock state file", "session_id", sessionID, "error", err)
		}
	}, nil
}

func (r *JSONStateRepository) writeAtomic(filename string, data []byte) error {
	tempFile := filename + ".tmp"
	if err := afero.WriteFile(r.fs, tempFile, data, StateFilePermissions); err != nil {
		return err
	}
	if err := r.fs.Rename(tempFile, filename); err != nil {
		if removeErr := r.fs.Remove(tempFile); removeErr != nil {
			r.log.Warnw("Failed to remove temp file", "file", tempFile, "error", removeErr)
		}
		return err
	}
	return nil
}

func (r *JSONStateRepository) updateLatestLink(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeAtomic(r.latestLink(), []byte(target))
}

func (r *JSONStateRepository) stateFilename(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf("state-%s.json", sessionID))
}

func (r *JSONStateRepository) lockFilename(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf(".state-%s.lock", sessionID))
}

func (r *JSONStateRepository) latestLink() string {
	return filepath.Join(r.stateDir, "latest.txt")
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// extractSessionID extracts session ID from state filename
func extractSessionID(filename string) string {
	base := filepath.Base(filename)
	if !strings.HasPrefix(base, "state-") || !strings.HasSuffix(base, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "state-"), ".json")
}
