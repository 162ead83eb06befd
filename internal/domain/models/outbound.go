package models

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// ParseInventoryRequest carries a pasted inventory list.
type ParseInventoryRequest struct {
	Text string `json:"text" binding:"required"`
}

// ParseInventoryResponse is the normalized form of a pasted list.
type ParseInventoryResponse struct {
	Records  []InventoryRecord `json:"records"`
	Failures []ItemFailure     `json:"failures"`
}

// ResolveCalendarRequest lists files whose totals were read elsewhere.
type ResolveCalendarRequest struct {
	Files []FileInput `json:"files"`
}

// ScanCalendarRequest points the server at workbooks on its own disk. Root is
// walked when Paths is empty.
type ScanCalendarRequest struct {
	Root  string   `json:"root"`
	Paths []string `json:"paths"`
}
