package models

import "time"

// Project is one PCF assessment with its own graph and report.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report holds the free-text study documentation of a project.
type Report struct {
	Goal           string `json:"goal"`
	FunctionalUnit string `json:"functionalUnit"`
	Boundaries     string `json:"boundaries"`
	Method         string `json:"method"`
	Assumptions    string `json:"assumptions"`
}
