package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "comprended.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "tiers":
		err = cmdTiers()
	case "preview":
		err = cmdPreview(os.Args[2:])
	case "generate":
		err = cmdGenerate(os.Args[2:])
	case "progress":
		err = cmdProgress(os.Args[2:])
	case "worker":
		err = cmdWorker(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("comprende %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Comprende - Spanish listening exercises from video transcripts

Usage:
  comprende <command> [arguments]

Setup Commands:
  init            Create ~/.comprende with a default configuration
  doctor          Check configuration, storage and annotator
  config          Show current configuration

Daemon Commands:
  start           Start the comprende daemon
  stop            Stop the comprende daemon
  status          Show daemon status
  logs            View daemon logs

Exercise Commands:
  tiers                     List difficulty tiers
  preview <text>            Build one exercise from a sentence
  generate <transcript>     Generate exercises from a transcript file
  progress <video>          Show answered exercises of a video (daemon)
  worker                    Run queued generation jobs

Integration Commands:
  mcp             Start MCP server on stdio (or --http <addr>)

Other:
  help            Show this help message
  version         Show version information

Examples:
  comprende preview -difficulty dificil "Si tuviera tiempo, iría al cine."
  comprende generate -difficulty facil -seed 42 clase1.json
  comprende start                 # Start daemon
  comprende worker -concurrency 4 # Consume jobs from RabbitMQ`)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
