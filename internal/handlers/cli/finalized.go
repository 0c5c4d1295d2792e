package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/chainhead/internal/finalstream"
	"github.com/gabapcia/chainhead/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
)

// finalizedCommand returns a CLI command that follows the finalized block of
// the chain until interrupted.
//
// Usage example:
//
//	chainhead finalized
func finalizedCommand(client *ethereum.Client) *cli.Command {
	return &cli.Command{
		Name:        "finalized",
		Description: "Follows the finalized block at an adaptive polling cadence.",
		Usage:       "Streams finalized blocks until Ctrl+C or a termination signal.",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			finalized := finalstream.New(client)
			for {
				block, ok := finalized.Next(ctx)
				if !ok {
					return ctx.Err()
				}

				stats := finalized.Stats()
				logger.Info(ctx, "new finalized block",
					"block.number", block.Number(),
					"block.hash", block.Hash(),
					"stats.new", stats.New,
					"stats.duplicated", stats.Duplicated,
					"stats.gaps", stats.Gaps,
					"stats.polling_interval", stats.PollingInterval,
				)
			}
		},
	}
}
