// Package speckle is the HTTP client for a Speckle server: the GraphQL
// directory of projects, models, and versions, and the REST object
// endpoint the graph resolver fetches content-addressed payloads from.
package speckle

import "time"

// Project is a Speckle project (formerly "stream").
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Visibility  string         `json:"visibility"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	SourceApps  []string       `json:"source_apps,omitempty"`
	Models      []ModelSummary `json:"models,omitempty"`
	ModelCount  int            `json:"model_count"`
	TeamCount   int            `json:"team_count"`
}

// ModelSummary identifies one model within a project.
type ModelSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Version is one immutable commit of a model, pointing at the root
// object of its content-addressed graph.
type Version struct {
	ID                string    `json:"id"`
	Message           string    `json:"message,omitempty"`
	SourceApplication string    `json:"source_application,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ReferencedObject  string    `json:"referenced_object"`
	Author            *UserRef  `json:"author,omitempty"`
}

// UserRef identifies a Speckle user.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
