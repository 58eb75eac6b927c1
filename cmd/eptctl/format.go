package main

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

func formatNumber(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatPercent(part, whole int) string {
	if whole == 0 {
		return "-"
	}
	return numberPrinter.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}
