package api

// ReportSummary describes one spec of the catalog without exposing
// credentials.
type ReportSummary struct {
	Name              string         `json:"name"`
	Queries           []QuerySummary `json:"queries"`
	Variables         int            `json:"variables"`
	RepeatingSections int            `json:"repeating_sections"`
}

type QuerySummary struct {
	Name        string   `json:"name"`
	Parameters  []string `json:"parameters,omitempty"`
	Description string   `json:"description,omitempty"`
}

// GenerateRequest carries the run parameters of one generation call.
type GenerateRequest struct {
	Params map[string]string `json:"params"`
}

type GenerateResponse struct {
	Report        string         `json:"report"`
	OutputPath    string         `json:"output_path"`
	Degraded      bool           `json:"degraded"`
	FailedQueries []string       `json:"failed_queries,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	Values        map[string]any `json:"values"`
}

type Error struct {
	Message string `json:"message"`
}
