// Package cli provides terminal helpers for the finsense command.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw)
//   - Argument file loading (YAML/JSON)
//   - Rendering of an agent's memory log with lipgloss
//   - Money and duration formatting
//
// Example usage:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
