package models

// Hotspot is a ranked contributor to total emissions.
type Hotspot struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ProcessEmissions is the emission subtotal of one process.
type ProcessEmissions struct {
	ProcessID      string  `json:"processId"`
	ProcessName    string  `json:"processName"`
	TotalEmissions float64 `json:"totalEmissions"`
}

// AggregationResult is the outcome of an emissions aggregation. ByPhase and
// ByProcess are only set by the phase/process variant.
type AggregationResult struct {
	TotalKgCO2e float64            `json:"totalKgCO2e"`
	ByPhase     map[Phase]float64  `json:"byPhase,omitempty"`
	ByProcess   []ProcessEmissions `json:"byProcess,omitempty"`
	Hotspots    []Hotspot          `json:"hotspots"`
}
