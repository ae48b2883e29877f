package anomaly_test

import (
	"testing"

	"github.com/septivank/utility-metering-api/internal/anomaly"
)

const (
	testSpikeThreshold            = 3.0
	testMinDataPointsForDetection = 3
)

func TestCheckReading_NegativeValue(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	flagged, reason := detector.CheckReading(-10.5, []float64{100, 105, 98})

	if !flagged {
		t.Error("Expected negative value to be flagged")
	}

	if reason != "negative extracted value" {
		t.Errorf("Expected reason 'negative extracted value', got '%s'", reason)
	}
}

func TestCheckReading_SuddenSpike(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	recent := []float64{100, 105, 98, 102, 99}
	value := 350.0 // More than 3x the average (~100)

	flagged, reason := detector.CheckReading(value, recent)

	if !flagged {
		t.Error("Expected spike to be flagged")
	}

	if reason == "" {
		t.Error("Expected reason for flagged spike")
	}
}

func TestCheckReading_PlausibleValue(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	recent := []float64{100, 105, 98, 102, 99}
	value := 103.0

	flagged, reason := detector.CheckReading(value, recent)

	if flagged {
		t.Errorf("Expected plausible value not to be flagged, but got: %s", reason)
	}
}

func TestCheckReading_InsufficientHistory(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	recent := []float64{100, 105} // Less than MinDataPointsForDetection
	value := 300.0

	flagged, _ := detector.CheckReading(value, recent)

	if flagged {
		t.Error("Should not flag a spike with insufficient history")
	}
}

func TestCheckReading_ZeroAverage(t *testing.T) {
	detector := anomaly.NewDetector(testSpikeThreshold, testMinDataPointsForDetection)

	recent := []float64{0, 0, 0}
	value := 100.0

	flagged, _ := detector.CheckReading(value, recent)

	if flagged {
		t.Error("Should not flag a spike when the recent average is 0")
	}
}
