package emissions

import (
	"cmp"
	"slices"

	"github.com/starford/pcfledger/internal/models"
)

// Rank returns a copy of hotspots sorted by value descending, keeping input
// order on ties, truncated to the first limit entries. A limit <= 0 keeps
// all entries. The result is never nil.
func Rank(hotspots []models.Hotspot, limit int) []models.Hotspot {
	out := make([]models.Hotspot, len(hotspots))
	copy(out, hotspots)
	slices.SortStableFunc(out, func(a, b models.Hotspot) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortProcesses sorts processes in place by total emissions descending,
// keeping encounter order on ties.
func SortProcesses(processes []models.ProcessEmissions) {
	slices.SortStableFunc(processes, func(a, b models.ProcessEmissions) int {
		return cmp.Compare(b.TotalEmissions, a.TotalEmissions)
	})
}

// ProcessHotspots projects an already sorted process list onto hotspots,
// labelled with the process name.
func ProcessHotspots(processes []models.ProcessEmissions, limit int) []models.Hotspot {
	n := len(processes)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]models.Hotspot, n)
	for i := range n {
		out[i] = models.Hotspot{Label: processes[i].ProcessName, Value: processes[i].TotalEmissions}
	}
	return out
}
