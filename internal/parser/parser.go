// Package parser reads dataset catalog files. A file is YAML (JSON is
// accepted as the YAML subset) holding either a bare list of datasets or a
// mapping with file-level defaults and a "datasets" list.
package parser

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/pcfledger/internal/models"
)

// entry is one dataset as written in a catalog file.
type entry struct {
	Name      string   `yaml:"name"`
	Unit      string   `yaml:"unit"`
	ValueCO2e *float64 `yaml:"valueCO2e"`
	Kind      string   `yaml:"kind"`
	Source    string   `yaml:"source"`
	Year      *int     `yaml:"year"`
	Geo       string   `yaml:"geo"`
	MethodID  *int64   `yaml:"methodId"`
}

// document is the mapping form of a catalog file. Top-level source, year,
// geo and methodId apply to entries that leave them empty.
type document struct {
	Source   string  `yaml:"source"`
	Year     *int    `yaml:"year"`
	Geo      string  `yaml:"geo"`
	MethodID *int64  `yaml:"methodId"`
	Datasets []entry `yaml:"datasets"`
}

// Result holds the datasets of one catalog file plus notes about entries
// that were skipped or adjusted.
type Result struct {
	Datasets []models.Dataset
	Warnings []string
}

// Parse decodes a catalog file. Only undecodable input is an error;
// individual bad entries are skipped with a warning.
func Parse(data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Result{Datasets: []models.Dataset{}}, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return &Result{Datasets: []models.Dataset{}}, nil
	}

	var doc document
	switch top := root.Content[0]; top.Kind {
	case yaml.SequenceNode:
		if err := top.Decode(&doc.Datasets); err != nil {
			return nil, fmt.Errorf("parser: datasets: %w", err)
		}
	case yaml.MappingNode:
		if err := top.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parser: %w", err)
		}
	default:
		return nil, fmt.Errorf("parser: expected a list or mapping at top level")
	}

	return build(doc), nil
}

func build(doc document) *Result {
	res := &Result{Datasets: make([]models.Dataset, 0, len(doc.Datasets))}
	index := make(map[string]int, len(doc.Datasets))

	for i, e := range doc.Datasets {
		name := strings.TrimSpace(e.Name)
		unit := strings.TrimSpace(e.Unit)
		switch {
		case name == "":
			res.warnf("entry %d: missing name, skipped", i+1)
			continue
		case unit == "":
			res.warnf("%s: missing unit, skipped", name)
			continue
		case e.ValueCO2e == nil:
			res.warnf("%s: missing valueCO2e, skipped", name)
			continue
		case math.IsNaN(*e.ValueCO2e) || math.IsInf(*e.ValueCO2e, 0) || *e.ValueCO2e < 0:
			res.warnf("%s: valueCO2e must be a finite non-negative number, skipped", name)
			continue
		}

		d := models.Dataset{
			Name:      name,
			Unit:      unit,
			ValueCO2e: *e.ValueCO2e,
			Kind:      models.NormalizeKind(e.Kind),
			Source:    firstNonEmpty(e.Source, doc.Source),
			Geo:       firstNonEmpty(e.Geo, doc.Geo),
			Year:      e.Year,
			MethodID:  e.MethodID,
		}
		if d.Year == nil {
			d.Year = doc.Year
		}
		if d.MethodID == nil {
			d.MethodID = doc.MethodID
		}

		if at, dup := index[name]; dup {
			res.warnf("%s: duplicate name, later entry wins", name)
			res.Datasets[at] = d
			continue
		}
		index[name] = len(res.Datasets)
		res.Datasets = append(res.Datasets, d)
	}
	return res
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
