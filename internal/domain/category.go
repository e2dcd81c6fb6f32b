package domain

// Category represents a node in the category hierarchy. ParentID is nil for
// root-level categories. Children holds the direct children only and is
// populated on single-category reads, never recursively.
type Category struct {
	ID       int64       `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	ParentID *int64      `json:"parent_id" db:"parent_id"`
	Children []*Category `json:"children,omitempty"`
}

// CategorySummary is the compact category shape embedded in product reads.
type CategorySummary struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
