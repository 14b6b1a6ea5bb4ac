package bearer

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service name used for cache entries.
const DefaultKeyringService = "msal-bearer"

// KeyringStore keeps the cache in the OS keychain (macOS Keychain, Windows
// Credential Manager, Secret Service on Linux). When the keychain is
// unavailable or rejects the blob, it falls back to a file.
type KeyringStore struct {
	service  string
	user     string
	fallback Store
}

// NewKeyringStore returns a keychain store for the entry service/user.
// user is usually the client ID so applications do not share caches.
func NewKeyringStore(service, user string, fallback Store) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service, user: user, fallback: fallback}
}

func (s *KeyringStore) Location() string {
	return fmt.Sprintf("keyring:%s/%s", s.service, s.user)
}

// Load prefers the keychain entry and reads the fallback file when there is
// no entry or the keychain cannot be reached.
func (s *KeyringStore) Load(ctx context.Context) ([]byte, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err == nil {
		return []byte(secret), nil
	}
	if s.fallback == nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return s.fallback.Load(ctx)
}

// Save writes to the keychain, or to the fallback file when that fails.
// A stale keychain entry is removed so Load does not prefer it afterwards.
func (s *KeyringStore) Save(ctx context.Context, data []byte) error {
	err := keyring.Set(s.service, s.user, string(data))
	if err == nil {
		return nil
	}
	if s.fallback == nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	// Best effort: an unreachable keychain has no entry to go stale.
	_ = keyring.Delete(s.service, s.user)
	return s.fallback.Save(ctx, data)
}

var _ Store = (*KeyringStore)(nil)
