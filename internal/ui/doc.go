// Package ui provides rendering functions for the gridmsg document browser.
//
// Render takes RenderParams and produces the terminal output for the list,
// filter, open, fetching, grid view and help screens. Rendering is pure (no
// side effects) and separated from state management in package app.
package ui
