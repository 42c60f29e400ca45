package pcfservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/sse"
	"github.com/starford/pcfledger/internal/store"
	"github.com/starford/pcfledger/internal/testutil"
)

type recorder struct {
	mu      sync.Mutex
	changes []sse.Change
}

func (r *recorder) PublishChange(c sse.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) last() sse.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return sse.Change{}
	}
	return r.changes[len(r.changes)-1]
}

// flakyCatalog fails every batched dataset lookup while down is set.
type flakyCatalog struct {
	store.Repository
	down bool
}

func (f *flakyCatalog) DatasetsByIDs(ctx context.Context, ids []int64) ([]models.Dataset, error) {
	if f.down {
		return nil, errors.New("catalog offline")
	}
	return f.Repository.DatasetsByIDs(ctx, ids)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *flakyCatalog, *recorder) {
	t.Helper()
	repo := &flakyCatalog{Repository: testutil.SeededDB(t)}
	rec := &recorder{}
	svc := New(repo,
		WithPublisher(rec),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
	)
	return svc, repo, rec
}

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }
func i64Ptr(v int64) *int64     { return &v }

func TestCreateDatasetNormalizesKind(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	d, err := svc.CreateDataset(ctx, DatasetInput{
		Name: strPtr("Altpapier"), Unit: strPtr("kg"), ValueCO2e: f64Ptr(0.02), Kind: strPtr("  ABFALL "),
	})
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	if d.Kind != models.KindWaste {
		t.Errorf("kind = %q, want waste", d.Kind)
	}
	if c := rec.last(); c.Type() != "dataset.created" || !c.AffectsResults {
		t.Errorf("event = %+v", c)
	}

	d, err = svc.CreateDataset(ctx, DatasetInput{Name: strPtr("Glass"), Unit: strPtr("kg"), ValueCO2e: f64Ptr(0)})
	if err != nil {
		t.Fatalf("CreateDataset zero factor: %v", err)
	}
	if d.Kind != models.KindMaterial {
		t.Errorf("default kind = %q, want material", d.Kind)
	}
}

func TestCreateDatasetValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := map[string]DatasetInput{
		"missing name":   {Unit: strPtr("kg"), ValueCO2e: f64Ptr(1)},
		"missing unit":   {Name: strPtr("x"), ValueCO2e: f64Ptr(1)},
		"missing value":  {Name: strPtr("x"), Unit: strPtr("kg")},
		"negative value": {Name: strPtr("x"), Unit: strPtr("kg"), ValueCO2e: f64Ptr(-1)},
		"nan value":      {Name: strPtr("x"), Unit: strPtr("kg"), ValueCO2e: f64Ptr(math.NaN())},
		"unknown method": {Name: strPtr("x"), Unit: strPtr("kg"), ValueCO2e: f64Ptr(1), MethodID: i64Ptr(99)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.CreateDataset(ctx, in); !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestUpdateDatasetPartial(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	d, err := svc.UpdateDataset(ctx, 2, DatasetInput{ValueCO2e: f64Ptr(2.7)})
	if err != nil {
		t.Fatalf("UpdateDataset: %v", err)
	}
	if d.Name != "Diesel" || d.ValueCO2e != 2.7 || d.Kind != models.KindEnergy {
		t.Errorf("partial update changed other fields: %+v", d)
	}

	d, err = svc.UpdateDataset(ctx, 2, DatasetInput{Kind: strPtr("Emissionen")})
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != models.KindEmissions {
		t.Errorf("kind = %q", d.Kind)
	}

	if _, err := svc.UpdateDataset(ctx, 404, DatasetInput{ValueCO2e: f64Ptr(1)}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing dataset: %v", err)
	}
	if _, err := svc.UpdateDataset(ctx, 2, DatasetInput{Name: strPtr("")}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty name: %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "  ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != DefaultProjectName || p.ID == "" {
		t.Errorf("project = %+v", p)
	}
	if rec.last().Type() != "project.created" {
		t.Errorf("event = %+v", rec.last())
	}

	if _, err := svc.RenameProject(ctx, p.ID, ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty rename: %v", err)
	}
	renamed, err := svc.RenameProject(ctx, p.ID, "Bottle")
	if err != nil || renamed.Name != "Bottle" {
		t.Fatalf("rename: %+v, %v", renamed, err)
	}

	if err := svc.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetProject(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted project: %v", err)
	}
}

func TestGraphSaveLoadAndConflict(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Bottle")

	empty, err := svc.GetGraph(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Revision != "" || len(empty.Graph.Nodes) != 0 {
		t.Errorf("initial graph = %+v", empty)
	}

	doc := []byte(`{"nodes":[{"id":"p1","data":{"title":"Melt","stage":"bogus","elementary":{"inflows":[{"kind":"energy","name":"power","amount":0,"datasetId":1}]}}}]}`)
	saved, err := svc.SaveGraph(ctx, p.ID, doc, "")
	if err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	if saved.Revision == "" {
		t.Fatal("empty revision")
	}
	if c := rec.last(); c.Type() != "graph.updated" || c.ProjectID != p.ID || !c.AffectsResults {
		t.Errorf("event = %+v", c)
	}

	loaded, err := svc.GetGraph(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	n := loaded.Graph.Nodes[0]
	if n.Stage != models.PhaseProduction || len(n.Elementary.Inputs) != 1 || n.Elementary.Inputs[0].Amount != 1 {
		t.Errorf("normalized node = %+v", n)
	}
	if loaded.Graph.LastSaved != fixedNow.Format(time.RFC3339) {
		t.Errorf("lastSaved = %q", loaded.Graph.LastSaved)
	}

	if _, err := svc.SaveGraph(ctx, p.ID, doc, "not-the-revision"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale save: %v, want ErrConflict", err)
	}
	if _, err := svc.SaveGraph(ctx, p.ID, []byte(`{nope`), ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad json: %v, want ErrInvalid", err)
	}
	if _, err := svc.GetGraph(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing project: %v", err)
	}
}

func TestAddProcess(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Bottle")

	first, _, err := svc.AddProcess(ctx, p.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != "p1" || first.Title != "Process" || first.Stage != models.PhaseProduction {
		t.Errorf("first = %+v", first)
	}
	second, state, err := svc.AddProcess(ctx, p.ID, "Ship", "distribution")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != "p2" || second.Position.X != 640 {
		t.Errorf("second = %+v", second)
	}
	if len(state.Graph.Nodes) != 2 {
		t.Errorf("nodes = %d", len(state.Graph.Nodes))
	}
}

func TestAddProcessConcurrentFirstSaveLosesNothing(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Bottle")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.AddProcess(ctx, p.ID, "", "")
		}()
	}
	wg.Wait()

	saved := 0
	for _, err := range errs {
		switch {
		case err == nil:
			saved++
		case !errors.Is(err, apperr.ErrConflict):
			t.Errorf("AddProcess: %v, want nil or ErrConflict", err)
		}
	}
	state, err := svc.GetGraph(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved == 0 || len(state.Graph.Nodes) != saved {
		t.Errorf("saved %d processes but graph has %d nodes", saved, len(state.Graph.Nodes))
	}
}

func TestProjectResultsSnapshotAndStaleFallback(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Truck")

	doc := []byte(`{"version":1,"nodes":[
		{"id":"p1","title":"Drive","stage":"distribution","elementary":{"inputs":[{"kind":"energy","name":"diesel","amount":10,"unit":"l","datasetId":2}],"outputs":[]}},
		{"id":"p2","title":"Assemble","stage":"production","elementary":{"inputs":[{"kind":"energy","name":"power","amount":100,"unit":"kWh","datasetId":1}],"outputs":[]}}
	]}`)
	if _, err := svc.SaveGraph(ctx, p.ID, doc, ""); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ProjectResults(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.TotalKgCO2e-66.9) > 1e-9 || res.Stale || res.Warning != "" {
		t.Fatalf("fresh result = %+v", res)
	}
	if res.ByProcess[0].ProcessID != "p2" || math.Abs(res.ByPhase[models.PhaseDistribution]-26.8) > 1e-9 {
		t.Errorf("breakdown = %+v / %+v", res.ByProcess, res.ByPhase)
	}

	repo.down = true
	stale, err := svc.ProjectResults(ctx, p.ID)
	if err != nil {
		t.Fatalf("ProjectResults with catalog down: %v", err)
	}
	if !stale.Stale || stale.Warning != WarnCatalogStale || stale.TotalKgCO2e != res.TotalKgCO2e {
		t.Errorf("stale result = %+v", stale)
	}
	if len(stale.Hotspots) != 2 || stale.Hotspots[0].Label != "Assemble" {
		t.Errorf("stale hotspots = %+v", stale.Hotspots)
	}
}

func TestProjectResultsEmptyFallback(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Fresh")
	repo.down = true

	res, err := svc.ProjectResults(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stale || res.Warning != WarnCatalogUnavailable || res.TotalKgCO2e != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Hotspots == nil || len(res.Hotspots) != 0 {
		t.Errorf("hotspots = %#v, want empty slice", res.Hotspots)
	}
	if len(res.ByPhase) != len(models.Phases) {
		t.Errorf("byPhase = %v", res.ByPhase)
	}
}

func TestProjectResultsHotspotLimit(t *testing.T) {
	repo := testutil.SeededDB(t)
	svc := New(repo, WithProcessHotspots(1), WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Two")
	doc := []byte(`{"nodes":[
		{"id":"a","title":"A","elementary":{"inputs":[{"kind":"energy","amount":1,"datasetId":1}]}},
		{"id":"b","title":"B","elementary":{"inputs":[{"kind":"energy","amount":1,"datasetId":2}]}}
	]}`)
	if _, err := svc.SaveGraph(ctx, p.ID, doc, ""); err != nil {
		t.Fatal(err)
	}
	res, err := svc.ProjectResults(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.ByProcess) != 2 || len(res.Hotspots) != 1 || res.Hotspots[0].Label != "B" {
		t.Errorf("result = %+v", res)
	}
}

func TestComputeEdges(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	edges := []models.FlowEdge{
		{ID: "e1", Source: "p1", Target: "p2", Data: models.EdgeData{DatasetID: i64Ptr(3), Amount: f64Ptr(120)}},
		{ID: "e2", Source: "p2", Target: "p3", Data: models.EdgeData{DatasetID: i64Ptr(1), Amount: f64Ptr(0.3)}},
		{ID: "e3", Source: "p2", Target: "p3", Data: models.EdgeData{DatasetID: i64Ptr(77), Amount: f64Ptr(5)}},
		{ID: "e4", Source: "p3", Target: "p4", Data: models.EdgeData{Amount: f64Ptr(9)}},
	}
	res := svc.ComputeEdges(ctx, edges)
	if res.TotalKgCO2e != 14.5203 {
		t.Errorf("total = %v, want 14.5203", res.TotalKgCO2e)
	}
	if len(res.Hotspots) != 2 || res.Hotspots[0].Label != "LKW-Transport" {
		t.Errorf("hotspots = %+v", res.Hotspots)
	}
	if res.ByPhase != nil || res.ByProcess != nil {
		t.Errorf("edge variant must not carry breakdowns: %+v", res)
	}

	repo.down = true
	res = svc.ComputeEdges(ctx, edges)
	if res.Warning != WarnCatalogUnavailable || res.TotalKgCO2e != 0 || len(res.Hotspots) != 0 {
		t.Errorf("degraded = %+v", res)
	}
}

func TestAggregateAdHocNodes(t *testing.T) {
	svc, _, _ := newService(t)
	nodes := []models.ProcessNode{{
		ID: "p1", Stage: models.PhaseUse,
		Elementary: &models.Elementary{Inputs: []models.ElementaryItem{
			{Kind: models.FlowEnergy, Amount: 10, DatasetID: i64Ptr(1)},
		}},
	}}
	res := svc.Aggregate(context.Background(), nodes)
	if math.Abs(res.TotalKgCO2e-4.01) > 1e-9 || math.Abs(res.ByPhase[models.PhaseUse]-4.01) > 1e-9 {
		t.Errorf("result = %+v", res)
	}
	if res.Hotspots[0].Label != "p1" {
		t.Errorf("hotspots = %+v", res.Hotspots)
	}
}

func TestReport(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Doc")

	r, err := svc.GetReport(ctx, p.ID)
	if err != nil || *r != (models.Report{}) {
		t.Fatalf("empty report: %+v, %v", r, err)
	}
	if _, err := svc.SaveReport(ctx, p.ID, models.Report{Goal: "g", Assumptions: "a"}); err != nil {
		t.Fatal(err)
	}
	if rec.last().Type() != "report.updated" {
		t.Errorf("event = %+v", rec.last())
	}
	r, _ = svc.GetReport(ctx, p.ID)
	if r.Goal != "g" || r.Assumptions != "a" {
		t.Errorf("report = %+v", r)
	}
}
