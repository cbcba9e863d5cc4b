// Package main is the entry point for the finsense CLI.
//
// Usage:
//
//	finsense [flags] <command> [subcommand] [args]
//
// Commands:
//
//	chat       - Interactive budgeting assistant
//	run        - Single agent run
//	tools      - List and call budgeting tools directly
//	income     - Record and summarize income
//	keyword    - Manage categorization keywords
//	statement  - Import and parse bank statements
//	session    - Manage saved chat sessions
//	serve      - WebSocket chat server
//	config     - Configuration management (contexts)
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/finsense/finsense/cmd/finsense/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
