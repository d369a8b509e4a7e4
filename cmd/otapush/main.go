package main

import (
	"fmt"
	"os"

	"otapush/internal/cli"
	"otapush/internal/config"

	_ "otapush/internal/command/diff"
	_ "otapush/internal/command/manifest"
	_ "otapush/internal/command/verify"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: otapush <command> [args...]")
		fmt.Println("Available commands:")
		for _, cmd := range cli.AllCommands() {
			fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Brief())
		}
		os.Exit(0)
	}

	cfg, err := config.Load(config.ConfigFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cmdName := os.Args[1]
	cmd, ok := cli.GetCommand(cmdName)
	if !ok {
		fmt.Printf("Unknown command: %s\n", cmdName)
		os.Exit(1)
	}

	ctx := &cli.Context{
		Args: os.Args[2:],
		Cfg:  cfg,
	}

	if err := cmd.Run(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
