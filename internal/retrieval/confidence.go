package retrieval

// Confidence grades how close the best match landed.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Bounds holds the distance boundaries between confidence grades. A
// distance strictly below High is high confidence, strictly below Medium
// is medium, everything else within the retrieval cutoff is low.
type Bounds struct {
	High   float64
	Medium float64
}

// Classify maps a match distance onto a confidence grade.
func Classify(distance float64, b Bounds) Confidence {
	switch {
	case distance < b.High:
		return ConfidenceHigh
	case distance < b.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
