package anomaly

import (
	"fmt"
)

// Detector flags extracted readings that are implausible next to the
// customer's recent confirmed readings. A flagged value is never
// rejected: the customer corrects it through confirmation. Wrong OCR
// digits are the dominant failure mode of vision extraction, so the
// signal is worth logging.
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a new detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// CheckReading reports whether an extracted value looks implausible
// given the customer's recent confirmed values
func (d *Detector) CheckReading(value float64, recentValues []float64) (bool, string) {
	if value < 0 {
		return true, "negative extracted value"
	}

	if len(recentValues) < d.minDataPointsForDetection {
		return false, ""
	}

	sum := 0.0
	for _, v := range recentValues {
		sum += v
	}
	average := sum / float64(len(recentValues))

	if average > 0 && value > d.spikeThreshold*average {
		return true, fmt.Sprintf("extracted value %.2f exceeds %.1fx the recent confirmed average %.2f",
			value, d.spikeThreshold, average)
	}

	return false, ""
}
