package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"clipforge/internal/config"
	"clipforge/internal/daemonrun"
)

func main() {
	_ = godotenv.Load()

	configFlag := flag.String("config", "", "Configuration file path")
	logLevelFlag := flag.String("log-level", "", "Override the configured log level")
	developmentFlag := flag.Bool("development", false, "Enable development logging")
	flag.Parse()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    *logLevelFlag,
		Development: *developmentFlag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "clipforged: %v\n", err)
		os.Exit(1)
	}
}
