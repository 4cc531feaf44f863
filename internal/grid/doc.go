// Package grid places (x, y, character) triples onto a character grid and
// renders it as rows of text.
//
// Coordinates start at (0,0) in the top-left corner, x grows to the right and
// y grows downward. The grid is exactly large enough to hold every triple;
// cells no triple covers hold the blank glyph (a single space). When several
// triples target the same cell the last one in input order wins.
//
// Rendering is pure: each call builds its own Grid and nothing is shared
// between calls, so Render is safe to call from multiple goroutines.
package grid
