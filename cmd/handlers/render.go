package handlers

import (
	"fmt"
	"strings"

	"carbonlens/internal/pipeline"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	upStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	downStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160"))
	flatStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderResult formats an adjustment for the terminal.
func renderResult(res pipeline.Result) string {
	scoreStyle := flatStyle
	switch {
	case res.FinalScore > res.BaseScore:
		scoreStyle = upStyle
	case res.FinalScore < res.BaseScore:
		scoreStyle = downStyle
	}

	rows := []string{
		titleStyle.Render(res.Manufacturer),
		row("Base score", fmt.Sprintf("%.2f", res.BaseScore)),
		labelStyle.Render(fmt.Sprintf("%-18s", "Adjusted score")) + scoreStyle.Render(fmt.Sprintf("%.2f", res.FinalScore)),
	}
	if !res.NoData {
		rows = append(rows,
			row("Report sentiment", fmt.Sprintf("%+.3f (%d paragraphs, %d pages)", res.DocSentiment, res.Paragraphs, res.PageCount)),
			row("Social sentiment", fmt.Sprintf("%+.3f (%d posts)", res.SocialSentiment, res.SocialCount)),
		)
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")
	b.WriteString(res.Explanation)
	if len(res.Degraded) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("Unavailable evidence: " + strings.Join(res.Degraded, ", ")))
	}
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-18s", label)) + value
}
