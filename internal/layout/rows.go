package layout

import (
	"sort"
)

// GroupRows clusters words into printed lines.
//
// Words are walked top to bottom. The open row's band is the union of its
// members' vertical extents; a word joins the open row when its vertical
// center falls inside that band widened by tolerance times the median word
// height of the page. The tolerance scales with the scan, so no pixel
// constant is involved.
func GroupRows(words []WordBox, tolerance float64) []Row {
	if len(words) == 0 {
		return nil
	}

	sorted := make([]WordBox, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].YMin != sorted[j].YMin {
			return sorted[i].YMin < sorted[j].YMin
		}
		return sorted[i].XMin < sorted[j].XMin
	})

	slack := tolerance * medianHeight(sorted)

	var rows []Row
	current := []WordBox{sorted[0]}
	top, bottom := sorted[0].YMin, sorted[0].YMax

	for _, word := range sorted[1:] {
		center := word.CenterY()
		if center >= top-slack && center <= bottom+slack {
			current = append(current, word)
			top = min(top, word.YMin)
			bottom = max(bottom, word.YMax)
			continue
		}
		rows = append(rows, newRow(current, top, bottom))
		current = []WordBox{word}
		top, bottom = word.YMin, word.YMax
	}
	rows = append(rows, newRow(current, top, bottom))

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].YCenter < rows[j].YCenter
	})
	return rows
}

func newRow(words []WordBox, top, bottom float64) Row {
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].XMin < words[j].XMin
	})
	return Row{
		Words:   words,
		YCenter: (top + bottom) / 2,
		Height:  bottom - top,
	}
}

func medianHeight(words []WordBox) float64 {
	heights := make([]float64, 0, len(words))
	for _, w := range words {
		if h := w.Height(); h > 0 {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return 0
	}
	sort.Float64s(heights)
	mid := len(heights) / 2
	if len(heights)%2 == 0 {
		return (heights[mid-1] + heights[mid]) / 2
	}
	return heights[mid]
}
