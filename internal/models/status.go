package models

// Bin alert statuses derived from fill level.
const (
	StatusNormal   = "normal"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Fill-level cutoffs. Every call site that derives a status goes through
// ClassifyFillLevel so the dashboard and the alerting path cannot disagree.
const (
	WarningCutoff  = 50.0
	CriticalCutoff = 80.0
)

// ClassifyFillLevel maps a fill percentage to a bin status. Total over all
// inputs: anything below the warning cutoff (negatives included) is normal,
// anything at or above the critical cutoff (beyond 100 included) is critical.
func ClassifyFillLevel(fillPercentage float64) string {
	switch {
	case fillPercentage >= CriticalCutoff:
		return StatusCritical
	case fillPercentage >= WarningCutoff:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ClampFill bounds a reported fill percentage to [0, 100] before it is stored.
func ClampFill(fillPercentage float64) float64 {
	if fillPercentage < 0 {
		return 0
	}
	if fillPercentage > 100 {
		return 100
	}
	return fillPercentage
}

// ValidStatus reports whether a device-supplied status is one we recognize.
func ValidStatus(status string) bool {
	return status == StatusNormal || status == StatusWarning || status == StatusCritical
}
