package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/yamdb-importer/internal/cli"
	"github.com/mrlokans/yamdb-importer/internal/config"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	cfg := config.NewConfig()

	// No arguments or leading flags run an import
	commandName := "import"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		commandName = args[0]
		args = args[1:]
	}

	var cmd command
	switch commandName {
	case "import":
		cmd = cli.NewImportCommand(cfg)
	case "schedule":
		cmd = cli.NewScheduleCommand(cfg)
	case "history":
		cmd = cli.NewHistoryCommand(cfg)
	case "version":
		fmt.Printf("yamdb-importer %s (%s)\n", Version, Commit)
		return
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", commandName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	// An aborted import also exits 1
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  import    Import the CSV data directory (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  schedule  Run imports on a cron schedule until interrupted\n")
	fmt.Fprintf(os.Stderr, "  history   List recent import runs\n")
	fmt.Fprintf(os.Stderr, "  version   Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
