package models

// BoundingBox represents the pixel region of a recognized text line
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TextObservation is one recognized line of text.
// Confidence is normalized to [0,1].
type TextObservation struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// TextAccuracy compares extracted text against an expected transcript
type TextAccuracy struct {
	ExpectedText string  `json:"expected_text"`
	WER          float64 `json:"word_error_rate"`
	CER          float64 `json:"character_error_rate"`
	MatchScore   float64 `json:"match_score"`
}
