package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/config"
	"github.com/gabapcia/chainhead/internal/headstream"
	"github.com/gabapcia/chainhead/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
)

// headstreamOptions maps the loaded configuration onto chain-head stream options.
func headstreamOptions(cfg config.Config) []headstream.Option {
	return []headstream.Option{
		headstream.WithResubscribeDelay(cfg.ResubscribeDelay),
		headstream.WithPollingInterval(cfg.PollingInterval),
		headstream.WithMaxErrors(cfg.MaxErrors),
	}
}

// headsCommand returns a CLI command that follows the chain head until
// interrupted, logging every delivered block.
//
// Usage example:
//
//	chainhead heads
func headsCommand(client *ethereum.Client, cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:        "heads",
		Description: "Follows the head of the chain, failing over from push subscriptions to polling as needed.",
		Usage:       "Streams new head blocks until Ctrl+C or a termination signal.",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			heads := headstream.NewHeads(client, ethereum.KeccakHasher{}, headstreamOptions(cfg)...)
			for {
				ev, ok := heads.Next(ctx)
				if !ok {
					return ctx.Err()
				}
				if !ev.Ok() {
					logger.Warn(ctx, "chain-head stream error", "error", ev.Err)
					continue
				}

				logger.Info(ctx, "new chain head",
					"block.number", ev.Item.Number(),
					"block.hash", ev.Item.Hash(),
					"block.kind", ev.Item.Kind(),
					"polling", heads.Polling(),
				)
			}
		},
	}
}

// logsCommand returns a CLI command that follows contract event logs until
// interrupted.
//
// Usage example:
//
//	chainhead logs --address 0xABC123...
func logsCommand(client *ethereum.Client, cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:        "logs",
		Description: "Follows contract event logs with the same push-to-poll failover as the heads command.",
		Usage:       "Streams matching logs until Ctrl+C or a termination signal.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "address",
				Usage: "Contract address to match (repeatable; empty matches all)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			filter := blocks.LogFilter{Addresses: c.StringSlice("address")}
			logs := headstream.NewLogs(client, filter, headstreamOptions(cfg)...)
			for {
				ev, ok := logs.Next(ctx)
				if !ok {
					return ctx.Err()
				}
				if !ev.Ok() {
					logger.Warn(ctx, "log stream error", "error", ev.Err)
					continue
				}

				logger.Info(ctx, "new log",
					"log.address", ev.Item.Address,
					"log.block_number", ev.Item.BlockNumber,
					"log.tx_hash", ev.Item.TxHash,
					"log.index", ev.Item.Index,
				)
			}
		},
	}
}
