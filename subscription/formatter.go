package subscription

import (
	"fmt"
	"strings"
)

// ConsoleFormatter renders subscription status for the terminal
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatStatus renders one line per list with the member's selection
func (f *ConsoleFormatter) FormatStatus(email string, items []StatusItem) string {
	if len(items) == 0 {
		return "No lists configured"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nSubscriptions for %s:\n\n", email)

	for i, item := range items {
		prefix := "\u251c"
		if i == len(items)-1 {
			prefix = "\u2570"
		}

		fmt.Fprintf(&sb, "%s\u2500\u2500 %s: %s\n", prefix, item.Label, describe(item))
	}

	sb.WriteString("\n")
	return sb.String()
}

func describe(item StatusItem) string {
	switch {
	case !item.Subscribed:
		return "Not subscribed"
	case len(item.Selection) == 0:
		return "Subscribed"
	default:
		return strings.Join(item.Selection, ", ")
	}
}
