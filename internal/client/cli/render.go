package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
)

var (
	colorMuted = lipgloss.Color("#7f849c")

	statusColors = map[models.Status]lipgloss.Color{
		models.StatusActive:     lipgloss.Color("#89b4fa"),
		models.StatusSuccessful: lipgloss.Color("#a6e3a1"),
		models.StatusFailed:     lipgloss.Color("#f38ba8"),
		models.StatusPaidOut:    lipgloss.Color("#f9e2af"),
		models.StatusRefunded:   lipgloss.Color("#fab387"),
	}

	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

func statusBadge(s models.Status) string {
	return lipgloss.NewStyle().Foreground(statusColors[s]).Render(string(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// campaignTable renders campaigns as a table; extra adds a trailing column.
func campaignTable(cs []models.Campaign, now time.Time, extraHeader string, extra func(i int) string) string {
	headers := []string{"ID", "Title", "Status", "Raised / Goal (ETH)", "Progress", "Days left", "Creator"}
	if extra != nil {
		headers = append(headers, extraHeader)
	}

	rows := make([][]string, 0, len(cs))
	for i, c := range cs {
		row := []string{
			strconv.FormatUint(c.ID, 10),
			truncate(c.Title, 32),
			statusBadge(c.Status),
			c.AmountRaised.String() + " / " + c.FundingGoal.String(),
			fmt.Sprintf("%.0f%%", c.Progress()),
			strconv.Itoa(c.DaysRemaining(now)),
			models.ShortAddress(c.Creator),
		}
		if extra != nil {
			row = append(row, extra(i))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}
