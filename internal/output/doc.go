// Package output writes command results for people and for programs.
//
// # Format Types
//
// Three output formats are supported:
//
//   - text (default for validate and history): styled, human-readable
//   - yaml (default for plan): self-documenting, same keys as JSON
//   - json: machine-readable
//
// Text output is styled with lipgloss. Styling follows the destination
// writer, so piping to a file or setting NO_COLOR yields plain text.
package output
