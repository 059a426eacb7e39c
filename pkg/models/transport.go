package models

// AssessRequest represents a request to assess an image by URL
type AssessRequest struct {
	URL          string  `json:"url" binding:"required"`
	Scale        float64 `json:"scale,omitempty"`
	RunOCR       bool    `json:"run_ocr,omitempty"`
	ExpectedText string  `json:"expected_text,omitempty"`
}

// BatchAssessRequest carries several assessment requests
type BatchAssessRequest struct {
	Items []AssessRequest `json:"items" binding:"required,min=1"`
}

// BatchItemResult holds either an assessment or the error for one batch item
type BatchItemResult struct {
	URL        string      `json:"url"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// BatchAssessResponse preserves the order of the request items
type BatchAssessResponse struct {
	Results   []BatchItemResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// AssessmentList is the response for history queries
type AssessmentList struct {
	Assessments []*Assessment `json:"assessments"`
	Count       int           `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
