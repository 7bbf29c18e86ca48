package extract

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LayoutOptions tune the PDF column heuristic. Distances are in PDF points.
type LayoutOptions struct {
	// MinColumnGap is the horizontal gap that separates two cells on one line.
	MinColumnGap float64 `yaml:"min_column_gap"`
	// MinColumns is the fewest cells a line needs to be a row candidate.
	MinColumns int `yaml:"min_columns"`
	// AlignTolerance is how far a cell may start from its column anchor and still count as aligned.
	AlignTolerance float64 `yaml:"align_tolerance"`
}

// DefaultLayoutOptions returns settings that work for typical registrar exports.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{MinColumnGap: 8, MinColumns: 3, AlignTolerance: 12}
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	d := DefaultLayoutOptions()
	if o.MinColumnGap <= 0 {
		o.MinColumnGap = d.MinColumnGap
	}
	if o.MinColumns <= 0 {
		o.MinColumns = d.MinColumns
	}
	if o.AlignTolerance <= 0 {
		o.AlignTolerance = d.AlignTolerance
	}
	return o
}

const defaultFontSize = 10.0

type fragment struct {
	X, W, FontSize float64
	S              string
	breakBefore    bool
}

type layoutLine struct {
	Page      int
	Y         float64
	Fragments []fragment
}

type cell struct {
	X    float64
	Text string
}

func (f fragment) fontSize() float64 {
	if f.FontSize > 0 {
		return f.FontSize
	}
	return defaultFontSize
}

func (f fragment) width() float64 {
	if f.W > 0 {
		return f.W
	}
	return float64(utf8.RuneCountInString(f.S)) * f.fontSize() * 0.5
}

// splitWideSpaces breaks a fragment that already contains a column gap rendered as
// two or more spaces. Positions of the pieces are estimated from the average glyph width.
func splitWideSpaces(f fragment) []fragment {
	if !strings.Contains(f.S, "  ") {
		return []fragment{f}
	}
	runes := []rune(f.S)
	glyph := f.width() / float64(len(runes))
	var out []fragment
	start := -1
	spaces := 0
	for i, r := range runes {
		if r == ' ' {
			spaces++
			continue
		}
		if start >= 0 && spaces >= 2 {
			out = append(out, piece(f, runes[start:i-spaces], start, glyph))
			start = -1
		}
		if start < 0 {
			start = i
		}
		spaces = 0
	}
	if start >= 0 {
		out = append(out, piece(f, runes[start:len(runes)-spaces], start, glyph))
	}
	if len(out) == 0 {
		return []fragment{f}
	}
	for i := 1; i < len(out); i++ {
		out[i].breakBefore = true
	}
	return out
}

func piece(f fragment, text []rune, offset int, glyph float64) fragment {
	return fragment{
		X:        f.X + float64(offset)*glyph,
		W:        float64(len(text)) * glyph,
		FontSize: f.FontSize,
		S:        string(text),
	}
}

// splitCells joins glyph and word fragments into cells. A gap of at least minGap starts
// a new cell; a smaller gap wider than a fifth of the font size becomes a single space.
func splitCells(frags []fragment, minGap float64) []cell {
	sorted := append([]fragment(nil), frags...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var (
		cells        []cell
		cur          strings.Builder
		curX, end    float64
		open         bool
		pendingSpace bool
	)
	flush := func() {
		if open {
			if text := strings.TrimSpace(cur.String()); text != "" {
				cells = append(cells, cell{X: curX, Text: text})
			}
		}
		cur.Reset()
		open = false
		pendingSpace = false
	}
	for _, f := range sorted {
		for _, p := range splitWideSpaces(f) {
			if strings.TrimFunc(p.S, unicode.IsSpace) == "" {
				pendingSpace = open
				continue
			}
			gap := p.X - end
			switch {
			case !open || p.breakBefore || gap >= minGap:
				flush()
				open = true
				curX = p.X
			case pendingSpace || gap > p.fontSize()*0.2:
				cur.WriteByte(' ')
			}
			pendingSpace = false
			cur.WriteString(p.S)
			end = p.X + p.width()
		}
	}
	flush()
	return cells
}

// buildRows turns positioned lines into row candidates. Lines with fewer than
// MinColumns cells are prose (titles, student details, footers) and are skipped. The
// dominant cell count defines a column grid whose anchors are the median cell starts; a
// row is high confidence only when it has that many cells and each starts within
// AlignTolerance of its anchor. The grouping is approximate by nature.
func buildRows(lines []layoutLine, o LayoutOptions) []RawRow {
	o = o.withDefaults()
	sorted := append([]layoutLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		return sorted[i].Y > sorted[j].Y
	})

	type candidate struct {
		line  int
		page  int
		cells []cell
	}
	var cands []candidate
	counts := make(map[int]int)
	for i, l := range sorted {
		cells := splitCells(l.Fragments, o.MinColumnGap)
		if len(cells) < o.MinColumns {
			continue
		}
		cands = append(cands, candidate{line: i + 1, page: l.Page, cells: cells})
		counts[len(cells)]++
	}
	if len(cands) == 0 {
		return nil
	}

	modal, best := 0, 0
	for n, c := range counts {
		if c > best || (c == best && n > modal) {
			modal, best = n, c
		}
	}
	columns := make([][]float64, modal)
	for _, c := range cands {
		if len(c.cells) != modal {
			continue
		}
		for i, cl := range c.cells {
			columns[i] = append(columns[i], cl.X)
		}
	}
	anchors := make([]float64, modal)
	for i, xs := range columns {
		anchors[i] = median(xs)
	}

	rows := make([]RawRow, 0, len(cands))
	for _, c := range cands {
		fields := make([]string, len(c.cells))
		aligned := len(c.cells) == modal
		for i, cl := range c.cells {
			fields[i] = cl.Text
			if aligned && math.Abs(cl.X-anchors[i]) > o.AlignTolerance {
				aligned = false
			}
		}
		conf := ConfidenceHigh
		if !aligned {
			conf = ConfidenceLow
		}
		rows = append(rows, RawRow{Line: c.line, Page: c.page, Fields: fields, Confidence: conf})
	}
	return rows
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
