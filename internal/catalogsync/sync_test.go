package catalogsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/sse"
	"github.com/starford/pcfledger/internal/store"
	"github.com/starford/pcfledger/internal/testutil"
)

const steelYAML = `
source: worldsteel
geo: GLO
datasets:
  - name: Steel
    unit: kg
    valueCO2e: 1.9
  - name: Slag
    unit: kg
    valueCO2e: 0.05
    kind: Abfall
`

type recorder struct {
	mu      sync.Mutex
	changes []sse.Change
}

func (r *recorder) PublishChange(c sse.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Type()
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type env struct {
	dir    string
	db     *store.DB
	syncer *Syncer
	events *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir, files := testutil.TestCatalog(t)
	db := testutil.TestDB(t)
	rec := &recorder{}
	return &env{dir: dir, db: db, syncer: New(db, files, quietLogger(), rec), events: rec}
}

func (e *env) datasets(t *testing.T) []models.Dataset {
	t.Helper()
	all, err := e.db.ListDatasets(context.Background(), models.DatasetFilter{})
	if err != nil {
		t.Fatal(err)
	}
	return all
}

func TestSyncImportsAndSkipsUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteFile(t, e.dir, "steel.yaml", steelYAML)
	testutil.WriteFile(t, e.dir, "notes.txt", "ignored")

	sum, err := e.syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if sum.Imported != 1 || sum.Skipped != 0 {
		t.Fatalf("first summary = %+v", sum)
	}
	all := e.datasets(t)
	if len(all) != 2 {
		t.Fatalf("datasets = %d, want 2", len(all))
	}
	if all[1].Kind != models.KindWaste || all[1].Source != "worldsteel" || all[1].Origin != "steel.yaml" {
		t.Errorf("slag = %+v", all[1])
	}
	if got := e.events.types(); len(got) != 2 || got[0] != "dataset.created" {
		t.Errorf("events = %v", got)
	}

	sum, err = e.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Imported != 0 || sum.Skipped != 1 {
		t.Errorf("second summary = %+v", sum)
	}
}

func TestSyncRemovesDeletedFiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteFile(t, e.dir, "steel.yaml", steelYAML)
	if _, err := e.syncer.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(e.dir, "steel.yaml")); err != nil {
		t.Fatal(err)
	}
	sum, err := e.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Removed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if n := len(e.datasets(t)); n != 0 {
		t.Errorf("datasets left = %d", n)
	}
}

func TestSyncKeepsDatasetsOfBrokenFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteFile(t, e.dir, "steel.yaml", steelYAML)
	if _, err := e.syncer.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	testutil.WriteFile(t, e.dir, "steel.yaml", "datasets: [ {{{")
	sum, err := e.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if n := len(e.datasets(t)); n != 2 {
		t.Errorf("datasets = %d, want previous 2", n)
	}
}

func TestWriteFileValidatesAndImports(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.syncer.WriteFile(ctx, "bad.yaml", []byte("datasets: 12")); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("invalid content: %v, want ErrInvalid", err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "bad.yaml")); !os.IsNotExist(err) {
		t.Error("invalid file should not be written")
	}
	if _, err := e.syncer.WriteFile(ctx, "steel.txt", []byte(steelYAML)); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("wrong extension: %v, want ErrInvalid", err)
	}

	res, err := e.syncer.WriteFile(ctx, "metals/steel.yaml", []byte(steelYAML))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if len(res.Datasets) != 2 {
		t.Errorf("parsed = %d", len(res.Datasets))
	}
	if n := len(e.datasets(t)); n != 2 {
		t.Errorf("datasets = %d, want 2", n)
	}

	files, err := e.syncer.Files()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "metals/steel.yaml" {
		t.Errorf("files = %+v", files)
	}

	if err := e.syncer.DeleteFile(ctx, "metals/steel.yaml"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if n := len(e.datasets(t)); n != 0 {
		t.Errorf("datasets after delete = %d", n)
	}
	if err := e.syncer.DeleteFile(ctx, "metals/steel.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v, want ErrNotFound", err)
	}
}

func TestReimportKeepsIDs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.syncer.WriteFile(ctx, "steel.yaml", []byte(steelYAML)); err != nil {
		t.Fatal(err)
	}
	before := e.datasets(t)

	updated := []byte("- {name: Steel, unit: kg, valueCO2e: 2.2}\n")
	if _, err := e.syncer.WriteFile(ctx, "steel.yaml", updated); err != nil {
		t.Fatal(err)
	}
	after := e.datasets(t)
	if len(after) != 1 || after[0].ID != before[0].ID || after[0].ValueCO2e != 2.2 {
		t.Errorf("after = %+v (before %+v)", after, before)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func (e *env) hasDataset(name string) bool {
	all, err := e.db.ListDatasets(context.Background(), models.DatasetFilter{Name: name})
	return err == nil && len(all) > 0
}

func startWatcher(t *testing.T, e *env) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.syncer.Watch(ctx, e.dir)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileImported(t *testing.T) {
	e := newEnv(t)
	startWatcher(t, e)

	testutil.WriteFile(t, e.dir, "steel.yaml", steelYAML)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return e.hasDataset("Steel")
	}, "new catalog file not imported by watcher")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	e := newEnv(t)
	startWatcher(t, e)

	if err := os.MkdirAll(filepath.Join(e.dir, "vendors"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, e.dir, "vendors/steel.yaml", steelYAML)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return e.hasDataset("Slag")
	}, "file in new subdir not imported by watcher")
}

func TestWatcher_DeleteRemovesDatasets(t *testing.T) {
	e := newEnv(t)
	testutil.WriteFile(t, e.dir, "steel.yaml", steelYAML)
	if _, err := e.syncer.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, e)

	_ = os.Remove(filepath.Join(e.dir, "steel.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !e.hasDataset("Steel")
	}, "datasets of deleted file still present")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	e := newEnv(t)
	testutil.WriteFile(t, e.dir, "old.yaml", steelYAML)
	if _, err := e.syncer.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, e)

	_ = os.Rename(filepath.Join(e.dir, "old.yaml"), filepath.Join(e.dir, "renamed.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		sums, err := e.db.CatalogChecksums(context.Background())
		if err != nil {
			return false
		}
		_, oldOK := sums["old.yaml"]
		_, newOK := sums["renamed.yaml"]
		return !oldOK && newOK && e.hasDataset("Steel")
	}, "rename reconciliation failed: old file should be forgotten and new file imported")
}
