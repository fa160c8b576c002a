package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paylink-cm/paylink/internal/domain"
)

// CredentialBundle is the state persisted between runs: the logged-in user,
// their token pair and the derived authenticated flag.
type CredentialBundle struct {
	User            *domain.User      `json:"user"`
	Tokens          *domain.TokenPair `json:"tokens"`
	IsAuthenticated bool              `json:"is_authenticated"`
}

// CredentialStore persists a credential bundle in one storage tier.
type CredentialStore interface {
	// Load returns the stored bundle, or nil when the tier is empty.
	Load() (*CredentialBundle, error)

	// Save replaces the stored bundle.
	Save(bundle *CredentialBundle) error

	// Clear empties the tier. Clearing an empty tier is a no-op.
	Clear() error
}

// FileStore is the durable tier: a JSON file readable only by the owner.
// It backs the "remember me" login choice.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a durable store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*CredentialBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var bundle CredentialBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return &bundle, nil
}

func (s *FileStore) Save(bundle *CredentialBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// MemoryStore is the ephemeral tier: credentials live only as long as the
// process. It backs logins without "remember me".
type MemoryStore struct {
	mu     sync.Mutex
	bundle *CredentialBundle
}

// NewMemoryStore creates an empty ephemeral store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*CredentialBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle, nil
}

func (s *MemoryStore) Save(bundle *CredentialBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = bundle
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = nil
	return nil
}
