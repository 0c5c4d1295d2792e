package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/chainhead/internal/blockcache"
	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/config"
	"github.com/gabapcia/chainhead/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
)

// parseAtBlock turns a CLI selector string into a block selector. It accepts
// the well-known tags, a 0x-prefixed block hash, and decimal or hexadecimal
// block numbers.
func parseAtBlock(s string) (blocks.AtBlock, error) {
	switch s {
	case "latest":
		return blocks.Latest, nil
	case "finalized":
		return blocks.Finalized, nil
	case "safe":
		return blocks.Safe, nil
	case "earliest":
		return blocks.Earliest, nil
	case "pending":
		return blocks.Pending, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2+2*blocks.HashSize {
			hash, err := blocks.HashFromHex(s)
			if err != nil {
				return blocks.AtBlock{}, err
			}
			return blocks.AtHash(hash), nil
		}

		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return blocks.AtBlock{}, fmt.Errorf("invalid block selector %q: %w", s, err)
		}
		return blocks.AtNumber(n), nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return blocks.AtBlock{}, fmt.Errorf("invalid block selector %q: %w", s, err)
	}
	return blocks.AtNumber(n), nil
}

// blockCommand returns a CLI command that fetches a single block through the
// caching provider.
//
// Usage example:
//
//	chainhead block --at finalized
func blockCommand(client *ethereum.Client, cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:        "block",
		Description: "Fetches one block through the caching block provider.",
		Usage:       "Prints the block at the given selector. Latest and finalized queries are served from cache when fresh.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "at",
				Usage: "Block selector: latest, finalized, safe, earliest, pending, a number, or a 0x-prefixed hash",
				Value: "latest",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			at, err := parseAtBlock(c.String("at"))
			if err != nil {
				return err
			}

			strategy := blockcache.FinalizedTag()
			if cfg.Confirmations > 0 {
				strategy = blockcache.Confirmations(cfg.Confirmations)
			}

			provider, err := blockcache.New(ctx, client,
				blockcache.WithCacheTimeout(cfg.CacheTimeout),
				blockcache.WithFinalityStrategy(strategy),
			)
			if err != nil {
				return err
			}

			var block blocks.MultiBlock
			switch at {
			case blocks.Latest:
				block, err = provider.Latest(ctx)
			case blocks.Finalized:
				block, err = provider.Finalized(ctx)
			default:
				fetched, fetchErr := provider.BlockAt(ctx, at)
				if fetchErr != nil {
					return fetchErr
				}
				if fetched == nil {
					return fmt.Errorf("no block at %s", at)
				}
				block = *fetched
			}
			if err != nil {
				return err
			}

			logger.Info(ctx, "block",
				"block.number", block.Number(),
				"block.hash", block.Hash(),
				"block.parent_hash", block.ParentHash(),
				"block.transactions", len(block.TxHashes()),
			)
			return nil
		},
	}
}
