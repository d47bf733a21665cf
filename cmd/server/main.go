// Package main is the entry point for the scorestream API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/scorestream/pkg/api"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "", "Config file (YAML)")
	port := flag.Int("port", 0, "Server port (default from config)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := common.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting scorestream API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	if err := api.StartServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
