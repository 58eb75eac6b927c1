package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/extable/table"
)

const mapColumns = 32

// occupancyCell picks the glyph and style for a segment by how full it is.
func occupancyCell(u table.SegmentUsage) (string, lipgloss.Style) {
	used := int(u.Count) - u.Free
	switch {
	case used == 0:
		return "·", emptyStyle
	case used*4 >= int(u.Count)*3:
		return "█", fullStyle
	case used*2 >= int(u.Count):
		return "▓", halfStyle
	case used*4 >= int(u.Count):
		return "▒", lowStyle
	default:
		return "░", lowStyle
	}
}

// renderOccupancy draws one cell per segment, mapColumns to a row, with the
// first segment number of each row on the left.
func renderOccupancy(usage []table.SegmentUsage) string {
	if len(usage) == 0 {
		return "(no segments)"
	}
	var b strings.Builder
	for row := 0; row < len(usage); row += mapColumns {
		end := min(row+mapColumns, len(usage))
		fmt.Fprintf(&b, "%5d ", usage[row].Number())
		for _, u := range usage[row:end] {
			glyph, style := occupancyCell(u)
			b.WriteString(styled(style, glyph))
		}
		if end < len(usage) {
			b.WriteByte('\n')
		}
	}
	legend := fmt.Sprintf("%s ≥75%%  %s ≥50%%  %s ≥25%%  %s <25%%  %s empty",
		styled(fullStyle, "█"), styled(halfStyle, "▓"), styled(lowStyle, "▒"),
		styled(lowStyle, "░"), styled(emptyStyle, "·"))
	return b.String() + "\n\n" + legend
}

// renderOutcome colors a compaction outcome.
func renderOutcome(o table.Outcome) string {
	s := o.String()
	if style, ok := outcomeStyles[s]; ok {
		return styled(style, s)
	}
	return s
}

// formatThreshold prints "-" for an idle threshold.
func formatThreshold(t uint32) string {
	if t == table.NotCompacting {
		return "-"
	}
	return fmt.Sprintf("%d", t)
}
