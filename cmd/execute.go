// Package cmd contains the command-line entry points for the sage service.
package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point. It routes to the requested subcommand;
// with no arguments it starts the HTTP server.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	return runServe()
}

func printHelp() {
	fmt.Print(`sage - document knowledge base service for AI assistants

Usage:
  sage [command]

Commands:
  serve     Start the HTTP API server (default)
  version   Show version information
  help      Show this help

Configuration is read from ./config.yaml or ~/.sage/config.yaml and
SAGE_* environment variables. GEMINI_API_KEY is required when the
provider is gemini.
`)
}
