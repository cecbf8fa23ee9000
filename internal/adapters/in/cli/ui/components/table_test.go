package components

import (
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
)

func plainTable(cols []TableColumn, rows [][]string) *TableModel {
	return NewTable(
		WithColumns(cols),
		WithRows(rows),
		WithHeaderStyle(lipgloss.NewStyle()),
		WithCellStyle(lipgloss.NewStyle()),
	)
}

func TestTableRender_PadsToColumnWidth(t *testing.T) {
	rendered := stripANSI(plainTable([]TableColumn{{Title: "DB", Width: 8}}, [][]string{{"orders"}}).Render())

	var rowLine string
	for _, line := range strings.Split(rendered, "\n") {
		if strings.Contains(line, "orders") {
			rowLine = line
			break
		}
	}
	require.NotEmpty(t, rowLine)
	assert.Contains(t, rowLine, "orders  ")
}

func TestTableRender_TruncatesLongCells(t *testing.T) {
	rendered := stripANSI(plainTable(
		[]TableColumn{{Title: "Database", Width: 10}},
		[][]string{{"acme-database-staging-weu-orders"}},
	).Render())

	assert.Contains(t, rendered, "acme-da...")
	assert.NotContains(t, rendered, "acme-database-staging")
}

func TestTableRender_NoColumns(t *testing.T) {
	assert.Empty(t, NewTable().Render())
}

func TestSimpleTable(t *testing.T) {
	rendered := stripANSI(SimpleTable([]string{"Step", "Outcome"}, [][]string{{"restore", "Succeeded"}}))

	assert.Contains(t, rendered, "Step")
	assert.Contains(t, rendered, "restore")
	assert.Contains(t, rendered, "Succeeded")
}

func TestTruncateCell(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		maxWidth int
		expected string
	}{
		{"short text unchanged", "abc", 5, "abc"},
		{"zero width passthrough", "abcdef", 0, "abcdef"},
		{"width three all dots", "abcdef", 3, "..."},
		{"ascii truncates", "abcdef", 5, "ab..."},
		{"wide runes truncate by display width", "数据库恢复", 5, "数..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateCell(tt.value, tt.maxWidth)
			assert.Equal(t, tt.expected, got)
			if tt.maxWidth > 0 {
				assert.LessOrEqual(t, runewidth.StringWidth(got), tt.maxWidth)
			}
		})
	}
}

func TestTruncateCell_StyledPassthrough(t *testing.T) {
	styled := "\x1b[32mOnline\x1b[0m"
	assert.Equal(t, styled, truncateCell(styled, 3))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, StatusSuccess, StepStatus(domain.StepSucceeded))
	assert.Equal(t, StatusError, StepStatus(domain.StepFailed))
	assert.Equal(t, StatusPreview, StepStatus(domain.StepDryRunPreview))
	assert.Equal(t, StatusSkipped, StepStatus(domain.StepSkipped))

	assert.Equal(t, StatusWarning, TargetStatus(domain.TargetTimedOut))
	assert.Equal(t, StatusPending, TargetStatus(domain.TargetPending))

	assert.Equal(t, StatusError, BatchStatus(domain.BatchDryRunWouldFail))
	assert.Equal(t, StatusPreview, BatchStatus(domain.BatchDryRunClean))
}

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, stripANSI(RenderStatus(StatusSuccess, "Online")), "Online")
	assert.NotEmpty(t, stripANSI(RenderStatus(StatusError, "")))
	assert.Contains(t, stripANSI(RenderStatusBadge(StatusWarning, "TimedOut")), "TimedOut")
}

func stripANSI(input string) string {
	ansiPattern := regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	return ansiPattern.ReplaceAllString(input, "")
}
