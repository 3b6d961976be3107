package model

// SearchKind discriminates the two shapes of source query.
type SearchKind string

const (
	// AreaSearch scopes results to a named administrative area, optionally
	// narrowed to one entity category.
	AreaSearch SearchKind = "area"
	// NameSearch is a free-text name match across record types.
	NameSearch SearchKind = "name"
)

// SearchSpec is the structured search request produced by the planner.
// Immutable once constructed.
type SearchSpec struct {
	Kind       SearchKind `json:"kind"`
	EntityHint string     `json:"entity_hint,omitempty"`
	Location   string     `json:"location,omitempty"`
	RawQuery   string     `json:"raw_query"`
}
