package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/store"
	"github.com/tasteapp/taste-index/internal/store/sqlite"
)

// StoreHandle wraps the configured index store with shutdown capability.
type StoreHandle struct {
	store.Index
	Path string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// StorePath returns where the index for backend lives under dataPath.
func StorePath(dataPath, backend string) string {
	if backend == config.BackendSQLite {
		return filepath.Join(dataPath, "index.db")
	}
	return filepath.Join(dataPath, "index")
}

// ProvideStore opens the badger or SQLite index.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Index.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := StorePath(cfg.Index.DataPath, cfg.Index.Backend)
	storeLog := log.Component("store")

	var (
		index store.Index
		err   error
	)
	switch cfg.Index.Backend {
	case config.BackendSQLite:
		index, err = sqlite.Open(path, storeLog)
	default:
		index, err = store.New(path, storeLog)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", cfg.Index.Backend, err)
	}

	log.Info("Index store opened", "backend", cfg.Index.Backend, "path", path)

	return &StoreHandle{Index: index, Path: path}, nil
}
