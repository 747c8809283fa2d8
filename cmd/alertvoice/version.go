package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X main.version=..." at release build time;
// it stays "dev" for local builds.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the alertvoice version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}
