package providers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/store/sqlite"
)

// ErrDataDirLocked is returned when another process holds the data directory.
var ErrDataDirLocked = errors.New("data directory is in use by another bookworm process")

// StoreHandle wraps the store with the data directory lock and shutdown capability.
type StoreHandle struct {
	*sqlite.Store
	lock *flock.Flock
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	err := h.Close()
	if unlockErr := h.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("release data directory lock: %w", unlockErr)
	}
	return err
}

// ProvideStore locks the data directory and opens the database inside it.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lockPath := filepath.Join(cfg.Data.Path, "bookworm.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data directory lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDataDirLocked, cfg.Data.Path)
	}

	dbPath := filepath.Join(cfg.Data.Path, "bookworm.db")
	db, err := sqlite.Open(dbPath, log.Logger.Logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	log.Info("database initialized", "path", dbPath)

	return &StoreHandle{Store: db, lock: lock}, nil
}
