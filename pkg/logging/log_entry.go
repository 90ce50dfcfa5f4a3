package logging

// LogEntry represents a structured log record with fields particularly relevant to optimization runs
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Optimization-specific fields
	Iteration   int    // The optimization iteration being executed
	CandidateID string // The prompt candidate the record concerns

	// General structured data
	Fields map[string]interface{}
}
