package main

import (
	"fmt"
	"os"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/cli"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/config"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
