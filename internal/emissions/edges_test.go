package emissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/pcfledger/internal/models"
)

func edge(datasetID *int64, amt *float64) models.FlowEdge {
	return models.FlowEdge{Source: "p1", Target: "p2", Data: models.EdgeData{DatasetID: datasetID, Amount: amt}}
}

func TestAggregateEdges_SameLabelNotMerged(t *testing.T) {
	edges := []models.FlowEdge{edge(id(2), amount(2)), edge(id(2), amount(3))}

	res := AggregateEdges(edges, catalog)

	require.Len(t, res.Hotspots, 2)
	assert.Equal(t, "Diesel", res.Hotspots[0].Label)
	assert.InDelta(t, 8.04, res.Hotspots[0].Value, 1e-9)
	assert.Equal(t, "Diesel", res.Hotspots[1].Label)
	assert.InDelta(t, 5.36, res.Hotspots[1].Value, 1e-9)
	assert.Equal(t, 13.4, res.TotalKgCO2e)
	assert.Nil(t, res.ByPhase)
	assert.Nil(t, res.ByProcess)
}

func TestAggregateEdges_TopTen(t *testing.T) {
	var edges []models.FlowEdge
	for i := range 15 {
		edges = append(edges, edge(id(5), amount(float64(i))))
	}

	res := AggregateEdges(edges, catalog)

	require.Len(t, res.Hotspots, EdgeHotspotLimit)
	assert.InDelta(t, 70.0, res.Hotspots[0].Value, 1e-9)
	assert.InDelta(t, 25.0, res.Hotspots[9].Value, 1e-9)
	assert.InDelta(t, 525.0, res.TotalKgCO2e, 1e-9)
}

func TestAggregateEdges_SkipsUnresolved(t *testing.T) {
	edges := []models.FlowEdge{
		edge(nil, amount(4)),
		edge(id(0), amount(4)),
		edge(id(404), amount(4)),
		edge(id(1), nil),
	}

	res := AggregateEdges(edges, catalog)

	assert.Zero(t, res.TotalKgCO2e)
	require.Len(t, res.Hotspots, 1)
	assert.Equal(t, models.Hotspot{Label: "Strommix DE", Value: 0}, res.Hotspots[0])
}

func TestAggregateEdges_Empty(t *testing.T) {
	res := AggregateEdges(nil, nil)
	assert.Zero(t, res.TotalKgCO2e)
	assert.NotNil(t, res.Hotspots)
	assert.Empty(t, res.Hotspots)
}

func TestAggregateEdges_TotalRounded(t *testing.T) {
	edges := []models.FlowEdge{edge(id(1), amount(1.23456789))}

	res := AggregateEdges(edges, catalog)

	assert.Equal(t, 0.4951, res.TotalKgCO2e)
}

func TestDatasetIDs_DistinctInOrder(t *testing.T) {
	edges := []models.FlowEdge{
		edge(id(3), nil), edge(nil, amount(1)), edge(id(1), nil), edge(id(3), nil), edge(id(0), nil),
	}
	assert.Equal(t, []int64{3, 1}, DatasetIDs(edges))
	assert.Empty(t, DatasetIDs(nil))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.2346, Round(1.23456, 4))
	assert.Equal(t, 2.0, Round(1.99999, 4))
	assert.Equal(t, -0.5, Round(-0.49999, 4))
}

func TestNodeDatasetIDs_InputsThenOutputs(t *testing.T) {
	nodes := []models.ProcessNode{
		process("p1", "A", models.PhaseProduction,
			[]models.ElementaryItem{input(1, id(2)), input(1, nil), input(1, id(0))},
			[]models.ElementaryItem{output(1, id(5)), output(1, id(2))}),
		{ID: "p2"},
		process("p3", "C", models.PhaseUse, []models.ElementaryItem{input(1, id(1))}, nil),
	}
	assert.Equal(t, []int64{2, 5, 1}, NodeDatasetIDs(nodes))
	assert.Equal(t, []int64{}, NodeDatasetIDs(nil))
}
