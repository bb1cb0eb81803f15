// Package identity manages the persistent guest identity used when no
// authenticated account is present. The identity is created once, stored
// on disk, and reused across sessions so scores and chat attribution
// survive restarts.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const guestPrefix = "guest-"

// Store loads or mints the guest identity backing a session. Creation is
// explicit: callers decide when the identity comes into existence rather
// than having it appear as a side effect of the first read.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored guest ID, or an empty string when none exists
// yet.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read identity file: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if !IsGuest(id) {
		return "", fmt.Errorf("identity file %s holds malformed id %q", s.path, id)
	}
	return id, nil
}

// LoadOrCreate returns the stored guest ID, minting and persisting a new
// one when none exists.
func (s *Store) LoadOrCreate() (string, error) {
	id, err := s.Load()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = guestPrefix + uuid.NewString()
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("create identity dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write identity file: %w", err)
	}
	log.Info().Str("guest_id", id).Msg("minted new guest identity")
	return id, nil
}

// IsGuest reports whether id is a guest identity rather than an
// authenticated account id.
func IsGuest(id string) bool {
	if !strings.HasPrefix(id, guestPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, guestPrefix))
	return err == nil
}
