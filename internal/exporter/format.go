package exporter

import (
	"strconv"
)

// formatFloat formats a float64 with a fixed number of decimals
func formatFloat(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// formatInt formats an int for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
