package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrEthical07/gatekeeper"
)

// Session is the persisted client session.
type Session struct {
	AccessToken  string                     `json:"accessToken"`
	RefreshToken string                     `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time                  `json:"expiresAt"`
	User         *gatekeeper.UserProjection `json:"user,omitempty"`
}

// HasToken reports whether s carries an access token.
func (s Session) HasToken() bool {
	return s.AccessToken != ""
}

// Complete reports whether s carries both a token and an identity.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.User != nil && s.User.ID != ""
}

// SessionStore is the durable home of a Session. Only the Manager reads or writes it.
type SessionStore interface {
	// Load returns ErrNoSession unless a token and an identity are both stored.
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || !s.session.Complete() {
		return Session{}, ErrNoSession
	}
	return cloneSession(*s.session), nil
}

func (s *MemoryStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneSession(sess)
	s.session = &c
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// FileStore keeps the session in a JSON file readable only by the owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore stores the session at path. The parent directory is created on Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !sess.Complete() {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func cloneSession(s Session) Session {
	if s.User != nil {
		u := *s.User
		u.Permissions = append([]string(nil), s.User.Permissions...)
		s.User = &u
	}
	return s
}
