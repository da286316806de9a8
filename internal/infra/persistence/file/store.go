// Package file implements the primary persistent store: a data directory of
// human-editable configuration, plant record, and status files.
//
// Every successful transaction rewrites the whole directory atomically. When
// a write fails the in-memory state rolls back to the pre-transaction content
// and any file already replaced is restored, so disk and memory never drift.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"growcore/internal/infra/persistence/memory"
	"growcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	configFileName = "fertilizer_config.json"
	plantsFileName = "plants.csv"
	statusFileName = "status.json"
)

// Diagnostic records a tolerated load problem: the file it came from and
// what was skipped or assumed.
type Diagnostic struct {
	File   string
	Detail string
}

func (d Diagnostic) String() string { return d.File + ": " + d.Detail }

// Store persists state to plain files while reusing the in-memory
// implementation for transactions.
type Store struct {
	*memory.Store
	dir   string
	mu    sync.Mutex
	diags []Diagnostic
}

// NewStore opens the data directory and hydrates the in-memory store from it.
// A missing or structurally broken scheme configuration is fatal; Bootstrap
// creates a starter directory. Malformed rows and entries are skipped and
// reported through LoadDiagnostics.
func NewStore(dir string, engine *domain.RulesEngine) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	var diags []Diagnostic

	configData, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, fmt.Errorf("read scheme config: %w", err)
	}
	schemes, settings, err := decodeConfig(configData, &diags)
	if err != nil {
		return nil, fmt.Errorf("scheme config %s: %w", configFileName, err)
	}
	if len(schemes) == 0 {
		return nil, fmt.Errorf("scheme config %s defines no schemes", configFileName)
	}
	if _, ok := schemes[settings.ActiveSchemeName]; !ok {
		return nil, fmt.Errorf("scheme config %s: active scheme: %w", configFileName,
			domain.ErrNotFound{Entity: domain.EntityScheme, Name: settings.ActiveSchemeName})
	}

	plantsData, err := os.ReadFile(filepath.Join(dir, plantsFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read plant records: %w", err)
	}
	plants := decodePlants(plantsData, &diags)

	statusData, _ := os.ReadFile(filepath.Join(dir, statusFileName))
	status := decodeStatus(statusData)

	mem := memory.NewStore(engine)
	mem.ImportState(memory.Snapshot{
		Schemes:  schemes,
		Plants:   plants,
		Settings: settings,
		Status:   status,
	})
	return &Store{Store: mem, dir: dir, diags: diags}, nil
}

// Bootstrap writes a starter data directory: the built-in substrate scheme,
// a plant file with only its header, and a zero status. It refuses to touch
// an existing scheme configuration.
func Bootstrap(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	configPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("scheme config %s: %w", configPath, fs.ErrExist)
	}
	scheme := domain.StarterScheme()
	files, err := encodeStateFiles(memory.Snapshot{
		Schemes:  map[string]domain.Scheme{scheme.Name: scheme},
		Plants:   map[string]domain.PlantRecord{},
		Settings: domain.StarterSettings(),
		Status:   domain.EcHelperStatus{},
	})
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.data); err != nil {
			return fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	return nil
}

// Dir returns the data directory the store was opened on.
func (s *Store) Dir() string { return s.dir }

// LoadDiagnostics reports rows and entries skipped while reading the data
// directory at open time.
func (s *Store) LoadDiagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// RunInTransaction applies fn, then rewrites the data files. A failed write
// restores both the files and the in-memory state to the pre-call content.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ExportState()
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(prev); err != nil {
		s.ImportState(prev)
		return res, err
	}
	return res, nil
}

type stateFile struct {
	name string
	data []byte
}

// encodeStateFiles renders a snapshot into the three data files in the order
// they are written.
func encodeStateFiles(snapshot memory.Snapshot) ([]stateFile, error) {
	configData, err := encodeConfig(snapshot.Schemes, snapshot.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode scheme config: %w", err)
	}
	plantsData, err := encodePlants(snapshot.Plants)
	if err != nil {
		return nil, fmt.Errorf("encode plant records: %w", err)
	}
	statusData, err := encodeStatus(snapshot.Status)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return []stateFile{
		{name: configFileName, data: configData},
		{name: plantsFileName, data: plantsData},
		{name: statusFileName, data: statusData},
	}, nil
}

func (s *Store) persist(prev memory.Snapshot) error {
	next, err := encodeStateFiles(s.ExportState())
	if err != nil {
		return domain.ErrPersistence{Op: "encode state", Err: err}
	}
	restore, err := encodeStateFiles(prev)
	if err != nil {
		return domain.ErrPersistence{Op: "encode prior state", Err: err}
	}
	for i, file := range next {
		if err := writeFile(filepath.Join(s.dir, file.name), file.data); err != nil {
			for j := 0; j < i; j++ {
				_ = writeFile(filepath.Join(s.dir, restore[j].name), restore[j].data)
			}
			return domain.ErrPersistence{Op: file.name, Err: err}
		}
	}
	return nil
}

// writeFile is swappable so tests can inject write failures.
var writeFile = writeFileAtomic

// OverrideWriteFile swaps the file writer for tests and returns a restore function.
func OverrideWriteFile(fn func(path string, data []byte) error) func() {
	prev := writeFile
	writeFile = fn
	return func() { writeFile = prev }
}

// writeFileAtomic stages data in a temp file and renames it into place so
// readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
