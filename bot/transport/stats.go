package transport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/core/telegram/format"
)

// statsWindow is how far back /stats looks.
const statsWindow = 24 * time.Hour

func escape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1)
	if err != nil {
		return s
	}
	return out
}

// formatStats renders a summary as Markdown for the admin.
func formatStats(sum history.Summary, pending, active int) string {
	var b strings.Builder
	b.WriteString(format.Bold("📊 Stats for the last "+hours(statsWindow)) + "\n\n")
	fmt.Fprintf(&b, "Requests: %d\nUsers: %d\nPending selections: %d\nBusy users: %d\n", sum.Total, sum.Users, pending, active)

	if counts := sum.Counts(); len(counts) > 0 {
		b.WriteString("\n" + format.Bold("Outcomes") + "\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "• %s: %d\n", escape(string(c.Outcome)), c.Count)
		}
	}
	if len(sum.ByAction) > 0 {
		actions := make([]string, 0, len(sum.ByAction))
		for a := range sum.ByAction {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		b.WriteString("\n" + format.Bold("Actions") + "\n")
		for _, a := range actions {
			fmt.Fprintf(&b, "• %s: %d\n", escape(a), sum.ByAction[a])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func hours(d time.Duration) string {
	return fmt.Sprintf("%dh", int(d/time.Hour))
}
