package emissions

import (
	"math"

	"github.com/starford/pcfledger/internal/models"
)

// EdgeHotspotLimit caps the hotspot list returned by AggregateEdges.
const EdgeHotspotLimit = 10

// DatasetIDs returns the distinct non-zero dataset ids referenced by edges,
// in first-seen order. Callers use it to fetch the catalog in one batch.
func DatasetIDs(edges []models.FlowEdge) []int64 {
	var ids idSet
	for _, e := range edges {
		ids.add(e.Data.DatasetID)
	}
	return ids.list()
}

// NodeDatasetIDs is DatasetIDs for the elementary items of nodes.
func NodeDatasetIDs(nodes []models.ProcessNode) []int64 {
	var ids idSet
	for _, n := range nodes {
		if n.Elementary == nil {
			continue
		}
		for _, it := range n.Elementary.Inputs {
			ids.add(it.DatasetID)
		}
		for _, it := range n.Elementary.Outputs {
			ids.add(it.DatasetID)
		}
	}
	return ids.list()
}

type idSet struct {
	seen  map[int64]struct{}
	order []int64
}

func (s *idSet) add(id *int64) {
	if id == nil || *id == 0 {
		return
	}
	if s.seen == nil {
		s.seen = make(map[int64]struct{})
	}
	if _, ok := s.seen[*id]; ok {
		return
	}
	s.seen[*id] = struct{}{}
	s.order = append(s.order, *id)
}

func (s *idSet) list() []int64 {
	if s.order == nil {
		return []int64{}
	}
	return s.order
}

// AggregateEdges sums emissions over flow edges. Each edge whose dataset
// resolves yields one hotspot labelled with the dataset name; entries with
// equal labels are kept separate. The total is rounded to 4 decimal places.
func AggregateEdges(edges []models.FlowEdge, datasets []models.Dataset) models.AggregationResult {
	byID := indexDatasets(datasets)

	var total float64
	candidates := make([]models.Hotspot, 0, len(edges))
	for _, e := range edges {
		if e.Data.DatasetID == nil || *e.Data.DatasetID == 0 {
			continue
		}
		ds, ok := byID[*e.Data.DatasetID]
		if !ok {
			continue
		}
		var amount float64
		if e.Data.Amount != nil {
			amount = *e.Data.Amount
		}
		kg := amount * ds.ValueCO2e
		total += kg
		candidates = append(candidates, models.Hotspot{Label: ds.Name, Value: kg})
	}

	return models.AggregationResult{
		TotalKgCO2e: Round(total, 4),
		Hotspots:    Rank(candidates, EdgeHotspotLimit),
	}
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
