package utils

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	// "1月", "01月", "１２月" — digits directly in front of the month kanji.
	kanjiMonthPattern = regexp.MustCompile(`([0-9]{1,2})月`)
	// "_01_", "2025-01", "-01." — a delimited two-digit token.
	delimitedMonthPattern = regexp.MustCompile(`[_\-]([0-9]{2})[_\-.]`)
)

// monthNames is checked in calendar order, so a filename carrying more
// than one English month name always resolves to the earliest month.
var monthNames = []struct {
	month int
	names []string
}{
	{1, []string{"january", "jan"}},
	{2, []string{"february", "feb"}},
	{3, []string{"march", "mar"}},
	{4, []string{"april", "apr"}},
	{5, []string{"may"}},
	{6, []string{"june", "jun"}},
	{7, []string{"july", "jul"}},
	{8, []string{"august", "aug"}},
	{9, []string{"september", "sep"}},
	{10, []string{"october", "oct"}},
	{11, []string{"november", "nov"}},
	{12, []string{"december", "dec"}},
}

// DetectMonth guesses the billing month from an invoice filename.
// Utility invoices are issued the month after the billing period, so a
// numeric match for month M means the reading belongs to M-1. English
// month names are taken as-is. Returns false when nothing matches.
func DetectMonth(filename string) (int, bool) {
	normalized := width.Narrow.String(filename)

	if m := kanjiMonthPattern.FindStringSubmatch(normalized); m != nil {
		if month, err := strconv.Atoi(m[1]); err == nil && month >= 1 && month <= 12 {
			return PrevMonth(month), true
		}
	}

	if m := delimitedMonthPattern.FindStringSubmatch(normalized); m != nil {
		if month, err := strconv.Atoi(m[1]); err == nil && month >= 1 && month <= 12 {
			return PrevMonth(month), true
		}
	}

	lower := strings.ToLower(normalized)
	for _, entry := range monthNames {
		for _, name := range entry.names {
			if strings.Contains(lower, name) {
				return entry.month, true
			}
		}
	}

	return 0, false
}

// PrevMonth returns the calendar month before m, wrapping 1 to 12.
func PrevMonth(m int) int {
	if m == 1 {
		return 12
	}
	return m - 1
}

// NextMonth returns the calendar month after m, wrapping 12 to 1.
func NextMonth(m int) int {
	if m == 12 {
		return 1
	}
	return m + 1
}
