package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/alertvoice/internal/audio"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or purge the on-disk audio cache",
	}
	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePurgeCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache artifact count and total size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(cfg.Cache.Dir)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("cache directory does not exist yet")
					return nil
				}
				return err
			}

			var count, corrupt int
			var total int64
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				count++
				total += info.Size()
				if data, err := os.ReadFile(filepath.Join(cfg.Cache.Dir, e.Name())); err == nil {
					if _, verr := audio.Validate(data); verr != nil {
						corrupt++
					}
				}
			}
			fmt.Printf("artifacts: %d\ncorrupt: %d\ntotal_bytes: %d\nlimit_bytes: %d\n", count, corrupt, total, int64(cfg.Cache.MaxSizeMB)*1024*1024)
			return nil
		},
	}
}

func newCachePurgeCmd() *cobra.Command {
	var corruptOnly bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached audio artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(cfg.Cache.Dir)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}

			var removed int
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
					continue
				}
				path := filepath.Join(cfg.Cache.Dir, e.Name())
				if corruptOnly {
					data, err := os.ReadFile(path)
					if err != nil {
						continue
					}
					if _, verr := audio.Validate(data); verr == nil {
						continue
					}
				}
				if err := os.Remove(path); err != nil {
					return err
				}
				removed++
			}
			if corruptOnly {
				fmt.Printf("removed %d corrupt artifacts\n", removed)
			} else {
				fmt.Printf("removed %d artifacts\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&corruptOnly, "corrupt-only", false, "only delete artifacts that fail WAV format validation")
	return cmd
}
