package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ironsheep/pellet-mcp/internal/config"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pellet-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("pellet-mcp - MCP server for pellet area measurement on graph paper")
			fmt.Println()
			fmt.Println("Usage: pellet-mcp [--config path]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --config path    YAML configuration file")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=path     Configuration file when --config is absent\n", config.EnvPath)
			fmt.Printf("  %s=debug Log level (debug, info, warn, error)\n", logger.EnvLevel)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pellet-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is the MCP protocol stream.
	log := logger.NewConsoleLogger(logger.LevelFromEnv(cfg.Log.Level))
	log.Debug("main", "starting", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	})

	server.Version = Version
	srv := server.New(cfg, log)
	if err := srv.Run(); err != nil {
		log.Error("main", err, nil)
		os.Exit(1)
	}
}
