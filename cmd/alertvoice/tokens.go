package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/alertvoice/internal/tokenstore"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Inspect stored platform OAuth tokens",
	}
	cmd.AddCommand(newTokensShowCmd())
	return cmd
}

func newTokensShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List every stored platform token's expiry and last update",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			store, err := tokenstore.Open(cfg.TokenStore.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.All(context.Background())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println("no tokens stored")
				return nil
			}
			for _, t := range all {
				fmt.Printf("%-10s expires_at=%s updated_at=%s\n", t.Platform, t.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"), t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}
