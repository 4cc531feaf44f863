package app

import (
	"github.com/henri123lemoine/gridmsg/internal/decode"
	"github.com/henri123lemoine/gridmsg/internal/source"
)

// Message types for the bubbletea app.

// DocumentsLoadedMsg is sent when the cache listing is loaded.
type DocumentsLoadedMsg struct {
	Documents []source.Document
	Err       error
}

// DocumentDecodedMsg is sent when a document has been fetched (or read
// from cache) and rendered.
type DocumentDecodedMsg struct {
	Ref    string
	Result *decode.Result
	Err    error
}

// DocumentForgottenMsg is sent when a document is dropped from the cache.
type DocumentForgottenMsg struct {
	Ref string
	Err error
}
