package models

// SearchFilters narrows a source search. Fields a source does not understand
// are ignored by that source.
type SearchFilters struct {
	Location string `json:"location,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	School   string `json:"school,omitempty"`
	Company  string `json:"company,omitempty"`
}

// SearchRequest is the per-source search invocation.
type SearchRequest struct {
	Kind     RecordKind    `json:"kind"`
	Query    string        `json:"query"`
	Filters  SearchFilters `json:"filters"`
	Headless bool          `json:"headless"`
	// Limit is a hint from the coordinator: the number of records the caller
	// ultimately wants. Sources use it to size their synthetic fallback set;
	// it does not raise the per-source processing cap.
	Limit int `json:"limit"`
}

// AcquireRequest fans a search out across the requested sources and caps the
// merged result at Quota records.
type AcquireRequest struct {
	Kind     RecordKind    `json:"kind"`
	Query    string        `json:"query"`
	Filters  SearchFilters `json:"filters"`
	Sources  []string      `json:"sources"`
	Quota    int           `json:"quota"`
	Headless bool          `json:"headless"`
}
