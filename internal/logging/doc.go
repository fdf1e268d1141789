// Package logging provides structured, file-based logging with rotation for docvec.
// JSON logs are written to ~/.docvec/logs/ at info level by default; when
// debug mode is enabled the level drops to debug for indexing and query
// behavior.
package logging
