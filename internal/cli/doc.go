// Package cli implements the ruler command line.
//
// Commands write through an OutputFormatter so every command supports
// --format text and --format json, and return an *ExitError carrying the
// process exit code. Logs go to stderr and never mix with JSON output.
package cli
