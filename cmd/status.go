package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/HiteshGorana/Leo/internal/config"
	"github.com/HiteshGorana/Leo/internal/relay"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the bridge endpoint accepts connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			if err := relay.Probe(ctx, cfg.Agent.Endpoint); err != nil {
				fmt.Printf("bridge %s: unreachable (%v)\n", cfg.Agent.Endpoint, err)
				return nil
			}
			fmt.Printf("bridge %s: reachable\n", cfg.Agent.Endpoint)
			return nil
		},
	}
}
