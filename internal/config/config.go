package config

const (
	DefaultTimeZone = "UTC"

	// Matching Engine Constants
	MatchWindowDays      = 5
	MatchAmountTolerance = "0.01"
	AutoMatchConfidence  = 0.85

	// Categorization Constants
	RecategorizeGroupSize = 25
	DefaultRecatSchedule  = "0 2 * * *" // 2 AM daily

	// Batch report display cap
	MaxReportErrors = 10
)
