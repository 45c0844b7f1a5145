package model

// Violation types reported by the client-side monitor. The list mirrors the
// browser signals the monitor observes plus the AI-derived face signals.
const (
	ViolationTabHidden         = "tab_hidden"
	ViolationWindowBlur        = "window_blur"
	ViolationCopyAttempt       = "copy_attempt"
	ViolationPasteAttempt      = "paste_attempt"
	ViolationContextMenu       = "context_menu"
	ViolationForbiddenShortcut = "forbidden_shortcut"
	ViolationMultipleWindows   = "multiple_windows"
	ViolationNoFaceDetected    = "no_face_detected"
	ViolationMultipleFaces     = "multiple_faces"
	ViolationLookingAway       = "looking_away"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var violationSeverity = map[string]string{
	ViolationTabHidden:         SeverityMedium,
	ViolationWindowBlur:        SeverityLow,
	ViolationCopyAttempt:       SeverityHigh,
	ViolationPasteAttempt:      SeverityHigh,
	ViolationContextMenu:       SeverityLow,
	ViolationForbiddenShortcut: SeverityHigh,
	ViolationMultipleWindows:   SeverityHigh,
	ViolationNoFaceDetected:    SeverityMedium,
	ViolationMultipleFaces:     SeverityHigh,
	ViolationLookingAway:       SeverityLow,
}

// SeverityFor returns the static severity for a violation type. Severity is
// informational: the escalation policy counts occurrences only and never
// weights them.
func SeverityFor(violationType string) string {
	if s, ok := violationSeverity[violationType]; ok {
		return s
	}
	return SeverityMedium
}
