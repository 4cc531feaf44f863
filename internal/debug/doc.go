// Package debug provides debug logging functionality for gridmsg.
//
// When enabled via the --debug flag, it logs fetches, cache hits, parse
// results and render sizes to a file, leaving stdout and the terminal UI
// untouched.
package debug
