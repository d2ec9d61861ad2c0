package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/portops/portsim/internal/domain"
)

// RenderBox wraps content in a rounded border with an optional title.
func RenderBox(title, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		Padding(1, 2)

	if title != "" {
		return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return box.Render(content)
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// FormatHours renders a duration in hours as "3h", "1h 30m" or "45m".
// Negative values keep their sign.
func FormatHours(hours float64) string {
	sign := ""
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	total := int(math.Round(hours * 60))
	h, m := total/60, total%60
	switch {
	case total == 0:
		return "0m"
	case h > 0 && m > 0:
		return fmt.Sprintf("%s%dh %dm", sign, h, m)
	case h > 0:
		return fmt.Sprintf("%s%dh", sign, h)
	default:
		return fmt.Sprintf("%s%dm", sign, m)
	}
}

// SignedHours renders a schedule delta, colouring growth red and
// shrinkage green.
func SignedHours(hours float64) string {
	switch {
	case hours > 0:
		return StyleRed.Render("+" + FormatHours(hours))
	case hours < 0:
		return StyleGreen.Render(FormatHours(hours))
	default:
		return StyleDim.Render("±0m")
	}
}

// Timestamp formats t in UTC at minute precision.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// HumanTimestamp returns a relative form for recent times.
func HumanTimestamp(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return Timestamp(t)
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return Timestamp(t)
	}
}

func TaskStatusPill(status domain.TaskStatus) string {
	switch status {
	case domain.TaskPending:
		return StyleBlue.Render("○ Pending")
	case domain.TaskAssigned:
		return StyleBlue.Render("◐ Assigned")
	case domain.TaskInProgress:
		return StyleGreen.Render("● In Progress")
	case domain.TaskCompleted:
		return StyleDim.Render("✔ Completed")
	case domain.TaskCancelled:
		return StyleDim.Render("✖ Cancelled")
	case domain.TaskFailed:
		return StyleRed.Render("✖ Failed")
	default:
		return StyleDim.Render(string(status))
	}
}
