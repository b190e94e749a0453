package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Backend and polling defaults
const (
	DefaultAPIBaseURL = "http://localhost:8000"
	// DefaultPollInterval is the fixed status polling interval.
	DefaultPollInterval = 2 * time.Second
	// DefaultHealthTimeout bounds the liveness probe issued by doctor.
	DefaultHealthTimeout = 5 * time.Second
)

// Viewer defaults
const (
	DefaultViewerBaseURL    = "http://localhost:8080/pdf-viewer"
	DefaultPDFStorageURL    = "https://your-api-or-s3-bucket.com/pdfs"
	DefaultViewerListenAddr = ":8080"
	DefaultViewerRateLimit  = 2
	DefaultViewerRateBurst  = 5
	DefaultViewerPage       = 1
	DefaultViewerChunk      = 0
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 30
	// HistoryRedisKey is the sorted set holding query ids by submission time.
	HistoryRedisKey = "pdqa:history"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)

// Display messages mirrored by the CLI renderer.
const (
	MsgProcessing      = "Processing your question..."
	MsgGenerating      = "Generating answer..."
	MsgUnparsedSource  = "(Unable to parse source)"
	MsgSubmitFailed    = "An error occurred while submitting the query"
	MsgStatusFailed    = "An error occurred while getting the query status"
	MsgSourcesHeading  = "Original Sources:"
	MsgNoHistoryRecord = "No history recorded yet."
)
