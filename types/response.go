package types

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// FeedbackListResponse wraps the ordered feedback list.
type FeedbackListResponse struct {
	Data  []Feedback `json:"data"`
	Count int        `json:"count"`
}
