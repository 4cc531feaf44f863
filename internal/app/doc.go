// Package app provides the Bubble Tea model for the gridmsg document browser.
//
// It lists cached documents, filters them, renders a selected document's
// grid in a scrollable viewport, and fetches new or refreshed documents
// through the decode pipeline. Rendering is delegated to package ui.
package app
