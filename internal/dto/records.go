package dto

// ListFilter contains query parameters for record listing endpoints.
type ListFilter struct {
	Q       string
	City    string
	Country string
	Page    int
	PerPage int
}

// RowWarning reports a CSV row that was skipped with a reason.
type RowWarning struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// UploadSummary reports the outcome of a CSV import run.
type UploadSummary struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	RecordIDs []string     `json:"record_ids"`
	Warnings  []RowWarning `json:"warnings,omitempty"`
}

// VerifyFieldRequest captures a verify/flag decision for a record field.
type VerifyFieldRequest struct {
	Field  string `json:"field"`
	Action string `json:"action"`
}
