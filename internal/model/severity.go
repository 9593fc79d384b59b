package model

import "strings"

// Severity is an OTLP log severity number, 1-24, with 0 meaning unset.
type Severity int32

const (
	SeverityUnset Severity = 0
	SeverityTrace Severity = 1
	SeverityDebug Severity = 5
	SeverityInfo  Severity = 9
	SeverityWarn  Severity = 13
	SeverityError Severity = 17
	SeverityFatal Severity = 21
)

// SeverityFromText maps a textual level to the low value of its OTLP block.
// Unrecognized text maps to SeverityUnset.
func SeverityFromText(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE", "TRACE2", "TRACE3", "TRACE4":
		return SeverityTrace
	case "DEBUG", "DEBUG2", "DEBUG3", "DEBUG4":
		return SeverityDebug
	case "INFO", "INFO2", "INFO3", "INFO4":
		return SeverityInfo
	case "WARN", "WARNING", "WARN2", "WARN3", "WARN4":
		return SeverityWarn
	case "ERROR", "ERROR2", "ERROR3", "ERROR4":
		return SeverityError
	case "FATAL", "FATAL2", "FATAL3", "FATAL4", "CRITICAL", "PANIC":
		return SeverityFatal
	default:
		return SeverityUnset
	}
}

// SeverityValid reports whether n is a valid OTLP severity number (0, or 1-24).
func SeverityValid(n int32) bool {
	return n == 0 || (n >= 1 && n <= 24)
}
