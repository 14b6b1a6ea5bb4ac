package bearer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
)

// emptyCache is a serialized cache with no accounts or tokens.
var emptyCache = []byte("{}")

// cacheAccessor connects the identity library's cache hooks to a Store.
// Load failures reset the in-memory cache to empty and save failures are
// recorded; neither is returned to the library, which would otherwise
// abort the acquisition.
type cacheAccessor struct {
	store    Store
	reporter Reporter

	mu         sync.Mutex
	reported   bool
	persistErr error
}

func newCacheAccessor(store Store, reporter Reporter) *cacheAccessor {
	return &cacheAccessor{store: store, reporter: reporter}
}

// begin clears per-acquisition state. The library calls Replace several
// times during one acquisition; the load outcome is reported once.
func (a *cacheAccessor) begin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reported = false
	a.persistErr = nil
}

// lastPersistError returns the save failure of the current acquisition, if any.
func (a *cacheAccessor) lastPersistError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.persistErr
}

func (a *cacheAccessor) Replace(ctx context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	data, err := a.store.Load(ctx)
	if errors.Is(err, ErrCacheNotFound) {
		a.reportLoad(func() { a.reporter.CacheNotFound(a.store.Location()) })
		return nil
	}
	if err == nil {
		err = u.Unmarshal(data)
	}
	if err != nil {
		loadErr := fmt.Errorf("%w: %w", ErrCacheLoad, err)
		a.reportLoad(func() { a.reporter.CacheLoadFailed(a.store.Location(), loadErr) })
		if resetErr := u.Unmarshal(emptyCache); resetErr != nil {
			return fmt.Errorf("failed to reset token cache: %w", resetErr)
		}
		return nil
	}
	a.reportLoad(func() { a.reporter.CacheLoaded(a.store.Location()) })
	return nil
}

func (a *cacheAccessor) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	data, err := m.Marshal()
	if err == nil {
		err = a.store.Save(ctx, data)
	}
	if err != nil {
		saveErr := fmt.Errorf("%w: %w", ErrPersist, err)
		a.mu.Lock()
		a.persistErr = saveErr
		a.mu.Unlock()
		a.reporter.TokenSaveFailed(saveErr)
		return nil
	}
	a.reporter.TokenSaved(a.store.Location())
	return nil
}

func (a *cacheAccessor) reportLoad(report func()) {
	a.mu.Lock()
	already := a.reported
	a.reported = true
	a.mu.Unlock()
	if !already {
		report()
	}
}

var _ cache.ExportReplace = (*cacheAccessor)(nil)
