// Package cmd wires the sharing core to its command line presentation.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dyastin-0/lanlink/settings"
	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v3"
)

const VERSION = "0.1.0"

const defaultReceivedDir = "lanlink/received"

func New() *cli.Command {
	return &cli.Command{
		Name:    "lanlink",
		Usage:   "share project folders with peers on your local network",
		Version: VERSION,
		Action:  rootAction,
		Commands: []*cli.Command{
			serveCommand(),
			sendCommand(),
			peersCommand(),
		},
	}
}

func rootAction(ctx context.Context, cmd *cli.Command) error {
	figure := figure.NewFigure("lanlink", "", true)
	figure.Print()

	fmt.Println()

	err := cli.ShowAppHelp(cmd)
	if err != nil {
		panic(err)
	}

	return nil
}

func settingsStore(path string) *settings.Store {
	if path == "" {
		if p, err := settings.DefaultPath(); err == nil {
			path = p
		}
	}

	return settings.NewStore(path)
}

func receivedRoot(dir string) string {
	if dir != "" {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "./"
	}

	return filepath.Join(homeDir, defaultReceivedDir)
}
