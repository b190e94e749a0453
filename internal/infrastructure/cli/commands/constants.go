package commands

import "time"

// Flag defaults
const (
	// DefaultAskTimeout bounds how long ask and status wait for an answer.
	DefaultAskTimeout = 5 * time.Minute
	// MaxHistoryAnalysisRecords caps the records read by history stats.
	MaxHistoryAnalysisRecords = 1000
)

// Error messages
const (
	ErrConfigProviderUnavailable = "config provider unavailable"
	ErrDoctorServiceUnavailable  = "doctor service unavailable"
	ErrQueryServiceUnavailable   = "query service unavailable"
	ErrInvalidRetainDays         = "--days must be > 0"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgHistoryCleared           = "History cleared."
)
