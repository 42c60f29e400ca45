package models

// Phase is a lifecycle phase a process belongs to.
type Phase string

// Lifecycle phases in display order.
const (
	PhaseMaterial     Phase = "material"
	PhaseProduction   Phase = "production"
	PhaseDistribution Phase = "distribution"
	PhaseUse          Phase = "use"
	PhaseEOL          Phase = "eol"
)

// Phases lists every lifecycle phase in display order.
var Phases = []Phase{PhaseMaterial, PhaseProduction, PhaseDistribution, PhaseUse, PhaseEOL}

var phaseLabels = map[Phase]string{
	PhaseMaterial:     "Raw material acquisition",
	PhaseProduction:   "Production",
	PhaseDistribution: "Distribution",
	PhaseUse:          "Use",
	PhaseEOL:          "End-of-life treatment",
}

// Label returns the human-readable name of the phase.
func (p Phase) Label() string {
	return phaseLabels[p.OrDefault()]
}

// Valid reports whether p is one of the five lifecycle phases.
func (p Phase) Valid() bool {
	_, ok := phaseLabels[p]
	return ok
}

// OrDefault returns p, or PhaseProduction when p is empty or unknown.
func (p Phase) OrDefault() Phase {
	if p.Valid() {
		return p
	}
	return PhaseProduction
}

// FlowKind classifies an elementary flow item.
type FlowKind string

// Input kinds are material and energy; output kinds are waste and emissions.
const (
	FlowMaterial  FlowKind = "material"
	FlowEnergy    FlowKind = "energy"
	FlowWaste     FlowKind = "waste"
	FlowEmissions FlowKind = "emissions"
)

// IsInput reports whether k is valid on the input side of a process.
func (k FlowKind) IsInput() bool { return k == FlowMaterial || k == FlowEnergy }

// IsOutput reports whether k is valid on the output side of a process.
func (k FlowKind) IsOutput() bool { return k == FlowWaste || k == FlowEmissions }

// ElementaryItem is a flow exchanged directly between a process and the
// environment, optionally bound to a dataset.
type ElementaryItem struct {
	Kind      FlowKind `json:"kind"`
	Name      string   `json:"name"`
	Amount    float64  `json:"amount"`
	Unit      string   `json:"unit"`
	DatasetID *int64   `json:"datasetId,omitempty"`
}

// Elementary groups the inputs and outputs of a process.
type Elementary struct {
	Inputs  []ElementaryItem `json:"inputs"`
	Outputs []ElementaryItem `json:"outputs"`
}

// Position is the canvas location of a process node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ProcessNode is a process in the graph.
type ProcessNode struct {
	ID         string      `json:"id"`
	Type       string      `json:"type,omitempty"`
	Title      string      `json:"title"`
	Stage      Phase       `json:"stage"`
	Position   Position    `json:"position"`
	Elementary *Elementary `json:"elementary,omitempty"`
}

// DisplayName returns the title, falling back to the id.
func (n ProcessNode) DisplayName() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// EdgeData is the payload of a flow edge.
type EdgeData struct {
	DatasetID *int64   `json:"datasetId,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	Name      string   `json:"name,omitempty"`
}

// FlowEdge is a directed flow between two processes.
type FlowEdge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty"`
	Data         EdgeData `json:"data"`
}

// Graph is the persisted process graph of a project.
type Graph struct {
	Version   int           `json:"version"`
	Nodes     []ProcessNode `json:"nodes"`
	Edges     []FlowEdge    `json:"edges"`
	LastSaved string        `json:"lastSaved,omitempty"`
}
