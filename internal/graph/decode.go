// Package graph decodes persisted process graph documents into normalized
// models.Graph values. Malformed content is default-filled rather than
// rejected: nodes and edges that cannot be identified are dropped, every
// other field falls back to a documented default.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/starford/pcfledger/internal/models"
)

var errInvalidJSON = errors.New("invalid JSON")

// Version is the graph document schema version written by Encode.
const Version = 1

// Defaults applied while decoding.
const (
	DefaultTitle    = "Process"
	DefaultNodeType = "process"
	DefaultUnit     = "kg"
)

type rawDocument struct {
	Version   flexNum    `json:"version"`
	Nodes     rawList    `json:"nodes"`
	Edges     rawList    `json:"edges"`
	LastSaved flexString `json:"lastSaved"`
}

// Every field below is decoded leniently: a value of the wrong JSON type
// reads as its zero value instead of failing the enclosing node or edge.
type rawNode struct {
	ID       flexString             `json:"id"`
	Type     flexString             `json:"type"`
	Position lenient[rawPosition]   `json:"position"`
	Title    *flexString            `json:"title"`
	Stage    *flexString            `json:"stage"`
	Elem     lenient[rawElementary] `json:"elementary"`
	Data     lenient[rawNodeData]   `json:"data"`
}

// rawNodeData is the canvas layout where process fields live under "data".
type rawNodeData struct {
	Title *flexString            `json:"title"`
	Stage *flexString            `json:"stage"`
	Elem  lenient[rawElementary] `json:"elementary"`
}

type rawPosition struct {
	X *flexNum `json:"x"`
	Y *flexNum `json:"y"`
}

type rawElementary struct {
	Inputs   itemList `json:"inputs"`
	Outputs  itemList `json:"outputs"`
	Inflows  itemList `json:"inflows"`
	Outflows itemList `json:"outflows"`
}

type rawItem struct {
	Kind      flexString `json:"kind"`
	Name      flexString `json:"name"`
	Amount    flexNum    `json:"amount"`
	Unit      flexString `json:"unit"`
	DatasetID *flexNum   `json:"datasetId"`
}

type rawEdge struct {
	ID           flexString           `json:"id"`
	Source       flexString           `json:"source"`
	Target       flexString           `json:"target"`
	SourceHandle flexString           `json:"sourceHandle"`
	TargetHandle flexString           `json:"targetHandle"`
	Data         lenient[rawEdgeData] `json:"data"`
}

type rawEdgeData struct {
	DatasetID *flexNum   `json:"datasetId"`
	Amount    *flexNum   `json:"amount"`
	Unit      flexString `json:"unit"`
	Name      flexString `json:"name"`
}

// Decode parses a graph document. Only syntactically invalid JSON is an
// error; structurally odd content is normalized.
func Decode(data []byte) (models.Graph, error) {
	var doc rawDocument
	if len(strings.TrimSpace(string(data))) == 0 {
		return Empty(), nil
	}
	if !json.Valid(data) {
		return models.Graph{}, fmt.Errorf("graph: decode: %w", errInvalidJSON)
	}
	// A document that is not an object decodes as empty.
	_ = json.Unmarshal(data, &doc)

	g := models.Graph{
		Version:   Version,
		Nodes:     make([]models.ProcessNode, 0, len(doc.Nodes)),
		Edges:     make([]models.FlowEdge, 0, len(doc.Edges)),
		LastSaved: string(doc.LastSaved),
	}
	for _, raw := range doc.Nodes {
		var rn rawNode
		if err := json.Unmarshal(raw, &rn); err != nil {
			// not an object
			continue
		}
		if node, ok := normalizeNode(rn); ok {
			g.Nodes = append(g.Nodes, node)
		}
	}
	for _, raw := range doc.Edges {
		var re rawEdge
		if err := json.Unmarshal(raw, &re); err != nil {
			continue
		}
		if e, ok := normalizeEdge(re); ok {
			g.Edges = append(g.Edges, e)
		}
	}
	return g, nil
}

// Encode serializes g as a current-version document.
func Encode(g models.Graph) ([]byte, error) {
	g.Version = Version
	if g.Nodes == nil {
		g.Nodes = []models.ProcessNode{}
	}
	if g.Edges == nil {
		g.Edges = []models.FlowEdge{}
	}
	return json.Marshal(g)
}

// Empty returns a graph with no nodes or edges.
func Empty() models.Graph {
	return models.Graph{Version: Version, Nodes: []models.ProcessNode{}, Edges: []models.FlowEdge{}}
}

func normalizeNode(rn rawNode) (models.ProcessNode, bool) {
	id := string(rn.ID)
	if strings.TrimSpace(id) == "" {
		return models.ProcessNode{}, false
	}

	title, stage, elem := rn.Title, rn.Stage, rn.Elem.v
	if data := rn.Data.v; data != nil {
		if title == nil {
			title = data.Title
		}
		if stage == nil {
			stage = data.Stage
		}
		if elem == nil {
			elem = data.Elem.v
		}
	}

	node := models.ProcessNode{
		ID:         id,
		Type:       string(rn.Type),
		Title:      DefaultTitle,
		Stage:      models.PhaseProduction,
		Elementary: &models.Elementary{Inputs: []models.ElementaryItem{}, Outputs: []models.ElementaryItem{}},
	}
	if node.Type == "" {
		node.Type = DefaultNodeType
	}
	if title != nil && *title != "" {
		node.Title = string(*title)
	}
	if stage != nil {
		node.Stage = models.ParsePhase(string(*stage))
	}
	if pos := rn.Position.v; pos != nil {
		if pos.X != nil {
			node.Position.X = pos.X.value()
		}
		if pos.Y != nil {
			node.Position.Y = pos.Y.value()
		}
	}
	if elem != nil {
		node.Elementary = normalizeElementary(*elem)
	}
	return node, true
}

func normalizeElementary(re rawElementary) *models.Elementary {
	out := &models.Elementary{Inputs: []models.ElementaryItem{}, Outputs: []models.ElementaryItem{}}

	if re.Inflows != nil || re.Outflows != nil {
		for _, it := range re.Inflows {
			kind := models.FlowEnergy
			if models.FlowKind(it.Kind) == models.FlowMaterial {
				kind = models.FlowMaterial
			}
			out.Inputs = append(out.Inputs, migrateItem(it, kind, "migrated input"))
		}
		for _, it := range re.Outflows {
			kind := models.FlowEmissions
			if models.FlowKind(it.Kind) == models.FlowMaterial {
				kind = models.FlowWaste
			}
			out.Outputs = append(out.Outputs, migrateItem(it, kind, "migrated output"))
		}
		return out
	}

	for _, it := range re.Inputs {
		kind := models.FlowKind(it.Kind)
		if !kind.IsInput() {
			kind = models.FlowMaterial
		}
		out.Inputs = append(out.Inputs, currentItem(it, kind))
	}
	for _, it := range re.Outputs {
		kind := models.FlowKind(it.Kind)
		if !kind.IsOutput() {
			kind = models.FlowWaste
		}
		out.Outputs = append(out.Outputs, currentItem(it, kind))
	}
	return out
}

// migrateItem converts a legacy inflow/outflow entry; zero amounts become 1.
func migrateItem(it rawItem, kind models.FlowKind, defaultName string) models.ElementaryItem {
	amount := it.Amount.value()
	if amount == 0 {
		amount = 1
	}
	name := string(it.Name)
	if name == "" {
		name = defaultName
	}
	return models.ElementaryItem{
		Kind:      kind,
		Name:      name,
		Amount:    math.Max(amount, 0),
		Unit:      unitOrDefault(string(it.Unit)),
		DatasetID: datasetRef(it.DatasetID),
	}
}

func currentItem(it rawItem, kind models.FlowKind) models.ElementaryItem {
	return models.ElementaryItem{
		Kind:      kind,
		Name:      string(it.Name),
		Amount:    math.Max(it.Amount.value(), 0),
		Unit:      unitOrDefault(string(it.Unit)),
		DatasetID: datasetRef(it.DatasetID),
	}
}

func normalizeEdge(re rawEdge) (models.FlowEdge, bool) {
	if re.Source == "" || re.Target == "" {
		return models.FlowEdge{}, false
	}
	e := models.FlowEdge{
		ID:           string(re.ID),
		Source:       string(re.Source),
		Target:       string(re.Target),
		SourceHandle: string(re.SourceHandle),
		TargetHandle: string(re.TargetHandle),
	}
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.SourceHandle, e.Target, e.TargetHandle)
	}
	data := re.Data.v
	if data == nil {
		one := 1.0
		e.Data = models.EdgeData{Amount: &one, Unit: DefaultUnit}
		return e, true
	}
	e.Data = models.EdgeData{
		DatasetID: datasetRef(data.DatasetID),
		Unit:      string(data.Unit),
		Name:      string(data.Name),
	}
	if data.Amount != nil {
		v := data.Amount.value()
		e.Data.Amount = &v
	}
	return e, true
}

// EdgeID derives a stable edge id from its endpoints.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return "e_" + source + sourceHandle + "_" + target + targetHandle
}

func datasetRef(n *flexNum) *int64 {
	if n == nil {
		return nil
	}
	v := n.value()
	if v <= 0 || v != math.Trunc(v) {
		return nil
	}
	id := int64(v)
	return &id
}

func unitOrDefault(u string) string {
	if u == "" {
		return DefaultUnit
	}
	return u
}
