package db

// Term is an exact-match filter on a field.
type Term struct {
	Field string
	Value any
}

// Query is the input for a search.
type Query struct {
	Index string
	// Type restricts the search to one mapping type. Backends that keep a
	// single schema per index may ignore it and rely on Terms instead.
	Type string
	// Terms are ANDed exact-match filters.
	Terms []Term
	// Text is free text matched against analyzed fields. Empty matches all.
	Text   string
	Offset int
	Limit  int
	// ReturnFields lists stored fields to load into hits.
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// Hit is a single document hit from a search, in rank order.
type Hit struct {
	Type   string
	ID     string
	Score  float64
	Fields map[string]string
}
