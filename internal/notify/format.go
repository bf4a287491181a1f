package notify

import (
	"fmt"
	"strings"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// FormatDigest renders a digest as one message with an attachment per
// vessel. A vessel with a critical overdue task or a critical missing item
// is an error; anything else is a warning.
func FormatDigest(d *Digest) OutboundMessage {
	msg := OutboundMessage{
		Text: fmt.Sprintf("Maintenance digest for %s: %d vessel(s) need attention",
			d.GeneratedAt.Format("2006-01-02"), len(d.Vessels)),
	}
	for _, vd := range d.Vessels {
		msg.Events = append(msg.Events, formatVessel(vd))
	}
	return msg
}

func formatVessel(vd VesselDigest) FormattedEvent {
	severity := "warning"
	if len(vd.CriticalMissing) > 0 {
		severity = "error"
	}

	var lines []string
	for _, t := range vd.Overdue {
		if t.Critical {
			severity = "error"
		}
		lines = append(lines, "Overdue: "+describeTask(t))
	}
	for _, it := range vd.CriticalMissing {
		lines = append(lines, fmt.Sprintf("Missing: %s (%s of %d on board, short %s)",
			it.ItemName, it.Current.String(), it.Required, it.Missing.String()))
	}

	return FormattedEvent{
		Title:    vd.VesselName,
		Body:     strings.Join(lines, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields: []Field{
			{Name: "Overdue", Value: fmt.Sprintf("%d", len(vd.Overdue)), Short: true},
			{Name: "Due soon", Value: fmt.Sprintf("%d", vd.DueSoon), Short: true},
			{Name: "Critical missing", Value: fmt.Sprintf("%d", len(vd.CriticalMissing)), Short: true},
		},
	}
}

func describeTask(t TaskLine) string {
	var parts []string
	if t.NextDueAt != nil {
		parts = append(parts, "due "+t.NextDueAt.Format("2006-01-02"))
	}
	if t.HoursRemaining != nil && t.HoursRemaining.IsNegative() {
		parts = append(parts, t.HoursRemaining.Neg().String()+" engine hours over")
	}
	s := t.Name
	if t.Critical {
		s += " [critical]"
	}
	if len(parts) > 0 {
		s += " (" + strings.Join(parts, ", ") + ")"
	}
	return s
}
