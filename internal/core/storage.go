package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	blobcore "growcore/internal/blob/core"
	blobfs "growcore/internal/infra/blob/fs"
	blobmemory "growcore/internal/infra/blob/memory"
	blobs3 "growcore/internal/infra/blob/s3"
	"growcore/internal/infra/persistence/file"
	"growcore/internal/infra/persistence/memory"
	"growcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageFile     StorageDriver = "file"     // data directory of JSON/CSV files (default)
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// NewMemoryStore constructs the in-memory store used by tests and ephemeral
// deployments.
func NewMemoryStore(engine *domain.RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to the file store when unset.
//
//	GROWCORE_STORAGE_DRIVER: file|memory|sqlite|postgres (default file)
//	GROWCORE_DATA_DIR: data directory for the file store (default .)
//	GROWCORE_SQLITE_PATH: path to sqlite file (default ./growcore.db)
//	GROWCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//
// The file store requires a bootstrapped data directory (see
// file.Bootstrap); the other drivers are seeded with the starter scheme on
// first open.
func OpenPersistentStore(engine *domain.RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("GROWCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageFile)
	}
	switch StorageDriver(driver) {
	case StorageFile:
		return file.NewStore(os.Getenv("GROWCORE_DATA_DIR"), engine)
	case StorageMemory:
		store := memory.NewStore(engine)
		if err := seedStarterState(store); err != nil {
			return nil, err
		}
		return store, nil
	case StorageSQLite:
		store, err := NewSQLiteStore(os.Getenv("GROWCORE_SQLITE_PATH"), engine)
		if err != nil {
			return nil, err
		}
		if err := seedStarterState(store); err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := NewPostgresStore(os.Getenv("GROWCORE_POSTGRES_DSN"), engine)
		if err != nil {
			return nil, err
		}
		if err := seedStarterState(store); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// seedStarterState creates the built-in starter scheme on stores opened with
// no schemes, so the active-scheme invariant holds from the first read.
func seedStarterState(store domain.PersistentStore) error {
	if len(store.ListSchemes()) > 0 {
		return nil
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateScheme(domain.StarterScheme()); err != nil {
			return err
		}
		starter := domain.StarterSettings()
		_, err := tx.UpdateSettings(func(settings *domain.Settings) error {
			settings.ActiveSchemeName = starter.ActiveSchemeName
			if len(settings.DefaultEcFactors) == 0 {
				settings.DefaultEcFactors = starter.DefaultEcFactors
			}
			return nil
		})
		return err
	})
	return err
}

// OpenArchiveStore selects the backup archive backend using environment
// variables. Defaults to a filesystem archive when unset.
//
//	GROWCORE_ARCHIVE_DRIVER: fs|memory|s3 (default fs)
//	GROWCORE_ARCHIVE_DIR: directory for the fs archive (default <data dir>/archive)
//	GROWCORE_ARCHIVE_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE: s3 settings
func OpenArchiveStore(ctx context.Context) (blobcore.Store, error) {
	driver := os.Getenv("GROWCORE_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(blobcore.DriverFilesystem)
	}
	switch blobcore.Driver(driver) {
	case blobcore.DriverFilesystem:
		dir := os.Getenv("GROWCORE_ARCHIVE_DIR")
		if dir == "" {
			dir = filepath.Join(dataDir(), "archive")
		}
		return blobfs.New(dir)
	case blobcore.DriverMemory:
		return blobmemory.New(), nil
	case blobcore.DriverS3:
		return blobs3.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

func dataDir() string {
	if dir := os.Getenv("GROWCORE_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}
