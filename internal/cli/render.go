package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dailytasks/internal/models"
)

var (
	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		models.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
	}
	doneStyle  = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
)

func renderList(w io.Writer, tasks []models.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, emptyStyle.Render("No tasks here. Add one with `dailytasks add`."))
		return
	}

	for _, t := range tasks {
		box := "[ ]"
		text := t.Text
		if t.Completed {
			box = "[x]"
			text = doneStyle.Render(text)
		}

		priority := priorityStyles[t.Priority].Render(fmt.Sprintf("%-6s", t.Priority))
		meta := relativeDate(t.CreatedAt, now)
		if t.CompletedAt != nil {
			meta += ", completed " + relativeDate(*t.CompletedAt, now)
		}

		fmt.Fprintf(w, "%s %d  %s  %s  %s\n", box, t.ID, priority, text, metaStyle.Render("("+meta+")"))
	}
}

func renderStats(w io.Writer, st models.Stats) {
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d total, %d completed, %d pending", st.Total, st.Completed, st.Pending)))
}

// relativeDate labels t the way the task list does: "Today" within a day,
// "Yesterday" within two, "N days ago" within a week, else the date.
func relativeDate(t, now time.Time) string {
	days := int(math.Ceil(math.Abs(now.Sub(t).Hours()) / 24))

	switch {
	case days <= 1:
		return "Today"
	case days == 2:
		return "Yesterday"
	case days <= 7:
		return fmt.Sprintf("%d days ago", days-1)
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}
