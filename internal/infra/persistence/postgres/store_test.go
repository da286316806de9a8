package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"growcore/internal/infra/persistence/postgres/testutil"
	"growcore/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore("stub-dsn", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestStorePersistsSnapshotBuckets(t *testing.T) {
	store, conn := newStubStore(t)
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateScheme(domain.Scheme{
			Name: "hydro",
			Fertilizers: map[string]domain.FertilizerDefinition{
				"grow": {Name: "grow", Schedule: domain.ScheduleTable{1: 2, 2: 4}, EcFactor: 478},
			},
			EcCurve: domain.EcCurve{1: 0.4},
		}); err != nil {
			return err
		}
		_, err := tx.CreatePlant(domain.PlantRecord{Name: "aurora", GerminationDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	rows := conn.Tables["state"]
	if len(rows) != len(postgresBuckets) {
		t.Fatalf("expected %d bucket rows, got %d", len(postgresBuckets), len(rows))
	}
	var schemesPayload []byte
	for _, row := range rows {
		if row["bucket"] == "schemes" {
			schemesPayload, _ = row["payload"].([]byte)
		}
	}
	if len(schemesPayload) == 0 {
		t.Fatalf("schemes bucket not persisted: %v", rows)
	}
	var schemes map[string]domain.Scheme
	if err := json.Unmarshal(schemesPayload, &schemes); err != nil {
		t.Fatalf("decode schemes payload: %v", err)
	}
	hydro, ok := schemes["hydro"]
	if !ok {
		t.Fatalf("hydro missing from persisted payload: %v", schemes)
	}
	if !reflect.DeepEqual(map[int]float64(hydro.Fertilizers["grow"].Schedule), map[int]float64{1: 2, 2: 4}) {
		t.Fatalf("persisted schedule = %v", hydro.Fertilizers["grow"].Schedule)
	}

	// A second transaction must replace bucket rows, not accumulate them.
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.UpdateScheme("hydro", func(s *domain.Scheme) error {
			s.EcCurve[2] = 0.6
			return nil
		})
		return e
	}); err != nil {
		t.Fatalf("second tx: %v", err)
	}
	if len(conn.Tables["state"]) != len(postgresBuckets) {
		t.Fatalf("upsert duplicated bucket rows: %d", len(conn.Tables["state"]))
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStoreLoadsExistingSnapshot(t *testing.T) {
	db, conn := testutil.NewStubDB()
	seed := func(bucket string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", bucket, err)
		}
		conn.Tables["state"] = append(conn.Tables["state"], map[string]any{"bucket": bucket, "payload": payload})
	}
	lastUsed := time.Date(2025, 5, 20, 18, 30, 0, 0, time.UTC)
	seed("schemes", map[string]domain.Scheme{"hydro": {Name: "hydro", EcCurve: domain.EcCurve{1: 0.4}}})
	seed("plants", map[string]domain.PlantRecord{"aurora": {Name: "aurora", GerminationDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}})
	seed("settings", domain.Settings{ActiveSchemeName: "hydro", DefaultEcFactors: map[string]float64{"growth": 478}})
	seed("status", domain.EcHelperStatus{LastUsed: lastUsed})

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	scheme, ok := store.GetScheme("hydro")
	if !ok || scheme.EcCurve[1] != 0.4 {
		t.Fatalf("scheme not hydrated: %+v", scheme)
	}
	if _, ok := store.GetPlant("aurora"); !ok {
		t.Fatalf("plant not hydrated")
	}
	if store.Settings().ActiveSchemeName != "hydro" {
		t.Fatalf("active = %q", store.Settings().ActiveSchemeName)
	}
	if !store.Status().LastUsed.Equal(lastUsed) {
		t.Fatalf("status = %v", store.Status().LastUsed)
	}
}

func TestPersistFailureRollsBackMemory(t *testing.T) {
	store, conn := newStubStore(t)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateScheme(domain.Scheme{Name: "hydro"})
		return e
	}); err != nil {
		t.Fatalf("seed tx: %v", err)
	}
	before := store.ExportState()

	conn.FailExec = true
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePlant(domain.PlantRecord{Name: "aurora", GerminationDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
		return e
	})
	var pErr domain.ErrPersistence
	if !errors.As(err, &pErr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if pErr.Op != "postgres snapshot" {
		t.Fatalf("op = %q", pErr.Op)
	}
	if !reflect.DeepEqual(store.ExportState(), before) {
		t.Fatalf("state not rolled back after failed persist")
	}
	if _, ok := store.GetPlant("aurora"); ok {
		t.Fatalf("phantom plant visible after rollback")
	}

	conn.FailExec = false
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePlant(domain.PlantRecord{Name: "aurora", GerminationDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
		return e
	}); err != nil {
		t.Fatalf("tx after clearing failure: %v", err)
	}
	if _, ok := store.GetPlant("aurora"); !ok {
		t.Fatalf("plant missing after successful retry")
	}
}

func TestCommitFailureRollsBackMemory(t *testing.T) {
	store, conn := newStubStore(t)
	before := store.ExportState()

	conn.FailCommit = true
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateScheme(domain.Scheme{Name: "hydro"})
		return e
	})
	var pErr domain.ErrPersistence
	if !errors.As(err, &pErr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if !reflect.DeepEqual(store.ExportState(), before) {
		t.Fatalf("state not rolled back after failed commit")
	}
}

func TestUserErrorLeavesDatabaseUntouched(t *testing.T) {
	store, conn := newStubStore(t)
	execsBefore := len(conn.Execs)

	sentinel := errors.New("refused")
	_, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected user error, got %v", err)
	}
	if len(conn.Execs) != execsBefore {
		t.Fatalf("persist ran despite failed transaction: %v", conn.Execs[execsBefore:])
	}
	if len(conn.Tables["state"]) != 0 {
		t.Fatalf("state rows written despite failed transaction")
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore("dsn", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestNewStorePingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestNewStoreRejectsCorruptSnapshot(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.Tables["state"] = []map[string]any{{"bucket": "schemes", "payload": []byte("{not json")}}
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "decode schemes") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewStoreSurfacesQueryError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailTables = map[string]bool{"state": true}
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "select state") {
		t.Fatalf("expected select error, got %v", err)
	}
}

func TestNewStoreSurfacesRowsError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.RowsErr = errors.New("connection reset")
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "iterate state") {
		t.Fatalf("expected iterate error, got %v", err)
	}
}
