// Package models defines the domain types for pcfledger.
package models

import "time"

// DatasetKind classifies an emission-factor dataset.
type DatasetKind string

// Canonical dataset kinds.
const (
	KindMaterial  DatasetKind = "material"
	KindEnergy    DatasetKind = "energy"
	KindWaste     DatasetKind = "waste"
	KindEmissions DatasetKind = "emissions"
)

// Dataset is an emission-factor record: ValueCO2e kg CO2e per one Unit.
type Dataset struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Unit      string      `json:"unit"`
	ValueCO2e float64     `json:"valueCO2e"`
	Kind      DatasetKind `json:"kind"`
	Source    string      `json:"source,omitempty"`
	Year      *int        `json:"year,omitempty"`
	Geo       string      `json:"geo,omitempty"`
	MethodID  *int64      `json:"methodId,omitempty"`
	// Origin is the catalog file a dataset was imported from; empty for
	// datasets created through the API.
	Origin    string    `json:"origin,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Method is an impact assessment method (e.g. GWP100) datasets are based on.
type Method struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	GWPSet      string `json:"gwpSet,omitempty"`
	Description string `json:"description,omitempty"`
}

// DatasetFilter narrows dataset listings. Empty fields match everything;
// non-empty fields are substring matches combined with AND.
type DatasetFilter struct {
	Name   string
	Source string
	Geo    string
	// Query matches name, source or geo.
	Query string
}
