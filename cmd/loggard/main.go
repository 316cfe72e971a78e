// loggard is a single-host telemetry daemon: it samples system and network
// state, parses security-relevant logs, and keeps rollups and traces in an
// embedded SQLite datastore. The export, report and analyze subcommands read
// an existing datastore without running the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loggard/loggard/internal/config"
	"github.com/loggard/loggard/internal/daemon"
	"github.com/loggard/loggard/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		handled, err := runCommand(ctx, os.Args[1], os.Args[2:], os.Stdout)
		if !handled {
			fmt.Fprintf(os.Stderr, "loggard: unknown command %q\n", os.Args[1])
			os.Exit(2)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "loggard: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfgPath := flag.String("config", "", "YAML config file path")
	once := flag.Bool("once", false, "run every job one time and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	showHelp := flag.Bool("help", false, "print usage and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("loggard %s\n", Version)
		return
	}
	if *showHelp {
		config.WriteHelp(os.Stdout, Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loggard: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg.LogLevel, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loggard: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting", "config", *cfgPath, "once", *once)

	rt := daemon.New(cfg, logger, Version)
	if *once {
		err = rt.RunOnce(ctx)
	} else {
		err = rt.Run(ctx)
	}
	if err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}
