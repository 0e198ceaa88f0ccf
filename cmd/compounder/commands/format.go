package commands

import (
	"fmt"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const separatorWidth = 59

// PrintSeparator prints a single-line visual separator
func PrintSeparator() {
	fmt.Println(strings.Repeat("─", separatorWidth))
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println(strings.Repeat("═", separatorWidth))
}

// PrintWarning prints a warning message set off by blank lines
func PrintWarning(message string) {
	fmt.Printf("\n⚠️  %s\n\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// printCells prints one row of left-aligned, width-padded cells
func printCells(cells []string, widths []int) {
	for i, c := range cells {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Printf("%-*s", widths[i], c)
	}
	fmt.Println()
}

// PrintTableHeader prints column titles and an underline sized to the widths
func PrintTableHeader(columns []string, widths []int) {
	printCells(columns, widths)

	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	fmt.Println(strings.Repeat("─", total))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	printCells(values, widths)
}

// PrintList prints a titled bulleted list
func PrintList(title string, items []string) {
	fmt.Printf("%s:\n", title)
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// formatMoney renders a dollar amount with a T/B/M suffix
func formatMoney(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// formatPct renders a ratio as a percentage
func formatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// formatTime renders a timestamp, or "-" for the zero value
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// entryTargetLabel captions an entry-price rung with its configured
// target return. A short target list repeats its last rung, matching
// how the ladder itself is computed.
func entryTargetLabel(targets []float64, i int) string {
	if len(targets) == 0 {
		return "n/a"
	}
	if i >= len(targets) {
		i = len(targets) - 1
	}
	return fmt.Sprintf("%.0f%% IRR", targets[i]*100)
}

// passMark renders a boolean as the ✅/❌ pair used in result tables
func passMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
