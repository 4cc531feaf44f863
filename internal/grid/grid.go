package grid

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxCells caps width*height when a Renderer does not set MaxCells.
const DefaultMaxCells = 4_000_000

// Triple places one glyph at (X, Y).
type Triple struct {
	X    int
	Y    int
	Char Glyph
}

// ParseTriple builds a Triple from the raw text of a table row.
// Surrounding whitespace is trimmed from all three values.
func ParseTriple(xText, char, yText string) (Triple, error) {
	x, err := parseCoordinate("x", xText)
	if err != nil {
		return Triple{}, err
	}
	y, err := parseCoordinate("y", yText)
	if err != nil {
		return Triple{}, err
	}
	g, err := NewGlyph(strings.TrimSpace(char))
	if err != nil {
		return Triple{}, err
	}
	return Triple{X: x, Y: y, Char: g}, nil
}

func parseCoordinate(axis, text string) (int, error) {
	text = strings.TrimSpace(text)
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &InvalidCoordinateError{Index: -1, Axis: axis, Value: text, NotInteger: true}
	}
	if v < 0 {
		return 0, &InvalidCoordinateError{Index: -1, Axis: axis, Value: text}
	}
	return v, nil
}

// Grid is a rectangular block of glyphs stored row by row.
type Grid struct {
	width  int
	height int
	cells  []Glyph
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Cell returns the glyph at (x, y). ok is false outside the grid.
func (g *Grid) Cell(x, y int) (glyph Glyph, ok bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return "", false
	}
	return g.cells[y*g.width+x], true
}

// Rows renders the grid top to bottom, each row left to right.
// An empty grid yields an empty, non-nil slice.
func (g *Grid) Rows() []string {
	rows := make([]string, 0, g.height)
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		b.Reset()
		b.Grow(g.width)
		for _, c := range g.cells[y*g.width : (y+1)*g.width] {
			b.WriteString(string(c))
		}
		rows = append(rows, b.String())
	}
	return rows
}

// Renderer builds grids under a cell-count cap.
// The zero value is ready to use and applies DefaultMaxCells.
type Renderer struct {
	// MaxCells is the largest width*height accepted. Zero or negative means
	// DefaultMaxCells.
	MaxCells int
}

func (r *Renderer) maxCells() int {
	if r == nil || r.MaxCells <= 0 {
		return DefaultMaxCells
	}
	return r.MaxCells
}

// Build validates every triple, sizes the grid and writes the triples in
// input order. The first invalid triple aborts the build; nothing is
// allocated until all triples have been checked.
func (r *Renderer) Build(triples []Triple) (*Grid, error) {
	if len(triples) == 0 {
		return &Grid{}, nil
	}

	maxX, maxY := 0, 0
	for i, t := range triples {
		if t.X < 0 {
			return nil, &InvalidCoordinateError{Index: i, Axis: "x", Value: strconv.Itoa(t.X)}
		}
		if t.Y < 0 {
			return nil, &InvalidCoordinateError{Index: i, Axis: "y", Value: strconv.Itoa(t.Y)}
		}
		if err := validateGlyph(string(t.Char)); err != nil {
			var charErr *InvalidCharacterError
			if errors.As(err, &charErr) {
				charErr.Index = i
			}
			return nil, err
		}
		maxX = max(maxX, t.X)
		maxY = max(maxY, t.Y)
	}

	// uint64 keeps max+1 from overflowing when a coordinate is math.MaxInt.
	width, height := uint64(maxX)+1, uint64(maxY)+1
	limit := r.maxCells()
	if width > uint64(limit)/height {
		return nil, &GridTooLargeError{Width: width, Height: height, Limit: limit}
	}

	g := &Grid{
		width:  int(width),
		height: int(height),
		cells:  make([]Glyph, width*height),
	}
	for i := range g.cells {
		g.cells[i] = Blank
	}
	for _, t := range triples {
		g.cells[t.Y*g.width+t.X] = t.Char
	}
	return g, nil
}

// Render builds the grid for triples and returns its rows.
func (r *Renderer) Render(triples []Triple) ([]string, error) {
	g, err := r.Build(triples)
	if err != nil {
		return nil, err
	}
	return g.Rows(), nil
}

// Build is Renderer.Build with default limits.
func Build(triples []Triple) (*Grid, error) {
	return (&Renderer{}).Build(triples)
}

// Render is Renderer.Render with default limits.
func Render(triples []Triple) ([]string, error) {
	return (&Renderer{}).Render(triples)
}

// WriteRows writes one row per line to w.
func WriteRows(w io.Writer, rows []string) error {
	for _, row := range rows {
		if _, err := io.WriteString(w, row+"\n"); err != nil {
			return err
		}
	}
	return nil
}
