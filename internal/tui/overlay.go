package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// dim redraws base in the backdrop color. Existing styling is stripped so
// the whole screen recedes evenly.
func dim(base string) string {
	lines := strings.Split(base, "\n")
	for i, line := range lines {
		lines[i] = dimStyle.Render(ansi.Strip(line))
	}
	return strings.Join(lines, "\n")
}

// placeCentered composites card over a width x height canvas of base,
// centered and nudged down-right by depth so stacked dialogs stay visible.
func placeCentered(base, card string, width, height, depth int) string {
	cardLines := strings.Split(card, "\n")
	cw := maxLineWidth(cardLines)
	x := (width-cw)/2 + depth*2
	y := (height-len(cardLines))/2 + depth
	return overlayAt(base, card, max(x, 0), max(y, 0), width, height)
}

// placeTopRight composites a panel in the top-right corner.
func placeTopRight(base, panel string, width, height int) string {
	w := maxLineWidth(strings.Split(panel, "\n"))
	return overlayAt(base, panel, max(width-w-1, 0), 1, width, height)
}

// overlayAt writes overlay onto base starting at column x, row y. Base is
// padded to height lines first so the overlay is never clipped by a short
// base view.
func overlayAt(base, overlay string, x, y, width, height int) string {
	baseLines := strings.Split(base, "\n")
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}
	overlayLines := strings.Split(overlay, "\n")
	ow := maxLineWidth(overlayLines)
	for i, line := range overlayLines {
		row := y + i
		if row >= len(baseLines) || (height > 0 && row >= height) {
			break
		}
		target := padRight(baseLines[row], width)
		left := ansi.Truncate(target, x, "")
		if lw := ansi.StringWidth(left); lw < x {
			left += strings.Repeat(" ", x-lw)
		}
		mid := padRight(line, ow)
		right := ""
		if end := x + ow; width > end {
			right = ansi.TruncateLeft(target, end, "")
		}
		baseLines[row] = left + mid + right
	}
	return strings.Join(baseLines, "\n")
}

func maxLineWidth(lines []string) int {
	m := 0
	for _, line := range lines {
		if w := ansi.StringWidth(line); w > m {
			m = w
		}
	}
	return m
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
