// Package emissions computes greenhouse-gas totals and hotspots from a
// process graph snapshot and a dataset catalog.
//
// Every function in this package is pure: inputs are read, never mutated,
// and no I/O happens. Missing dataset references, unresolvable ids, zero
// emission factors and unknown lifecycle phases exclude the affected flow
// from the totals instead of failing.
package emissions

import "github.com/starford/pcfledger/internal/models"

// DefaultProcessHotspots is the number of processes reported as hotspots by
// Aggregate.
const DefaultProcessHotspots = 5

// Aggregate computes per-process and per-phase emissions for nodes, ranking
// the top DefaultProcessHotspots processes as hotspots.
func Aggregate(nodes []models.ProcessNode, datasets []models.Dataset) models.AggregationResult {
	return AggregateTop(nodes, datasets, DefaultProcessHotspots)
}

// AggregateTop is Aggregate with an explicit hotspot limit. A limit <= 0
// reports every emitting process as a hotspot.
func AggregateTop(nodes []models.ProcessNode, datasets []models.Dataset, limit int) models.AggregationResult {
	byID := indexDatasets(datasets)

	byPhase := make(map[models.Phase]float64, len(models.Phases))
	for _, p := range models.Phases {
		byPhase[p] = 0
	}

	var total float64
	subtotals := make([]float64, len(nodes))

	for i, node := range nodes {
		if node.Elementary == nil {
			continue
		}
		stage := node.Stage.OrDefault()
		for _, items := range [][]models.ElementaryItem{node.Elementary.Inputs, node.Elementary.Outputs} {
			for _, item := range items {
				emission, ok := itemEmission(item, byID)
				if !ok {
					continue
				}
				subtotals[i] += emission
				byPhase[stage] += emission
				total += emission
			}
		}
	}

	byProcess := make([]models.ProcessEmissions, 0, len(nodes))
	for i, node := range nodes {
		if subtotals[i] > 0 {
			byProcess = append(byProcess, models.ProcessEmissions{
				ProcessID:      node.ID,
				ProcessName:    node.DisplayName(),
				TotalEmissions: subtotals[i],
			})
		}
	}
	SortProcesses(byProcess)

	return models.AggregationResult{
		TotalKgCO2e: total,
		ByPhase:     byPhase,
		ByProcess:   byProcess,
		Hotspots:    ProcessHotspots(byProcess, limit),
	}
}

// itemEmission returns amount * valueCO2e for an item whose dataset
// reference resolves to a non-zero emission factor.
func itemEmission(item models.ElementaryItem, byID map[int64]models.Dataset) (float64, bool) {
	if item.DatasetID == nil || *item.DatasetID == 0 {
		return 0, false
	}
	ds, ok := byID[*item.DatasetID]
	if !ok || ds.ValueCO2e == 0 {
		return 0, false
	}
	// Amounts are taken in the item's own unit; no conversion to ds.Unit.
	return item.Amount * ds.ValueCO2e, true
}

// indexDatasets builds an id lookup; later duplicates replace earlier ones.
func indexDatasets(datasets []models.Dataset) map[int64]models.Dataset {
	byID := make(map[int64]models.Dataset, len(datasets))
	for _, ds := range datasets {
		byID[ds.ID] = ds
	}
	return byID
}
