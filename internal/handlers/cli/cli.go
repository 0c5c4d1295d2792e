// Package cli wires the configuration, logging, telemetry, and node client
// together and exposes the chainhead command-line interface.
package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/chainhead/internal/config"
	"github.com/gabapcia/chainhead/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/telemetry"
	"github.com/gabapcia/chainhead/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainhead/internal/pkg/transport/websocket"
)

// Run initializes and executes the chainhead CLI application.
//
// It registers all available commands:
//
//   - `heads`: Follows the chain head, failing over from push to polling.
//   - `logs`: Follows contract event logs with the same failover behavior.
//   - `finalized`: Follows the finalized block at an adaptive cadence.
//   - `block`: Fetches a single block through the caching provider.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var shutdown telemetry.ShutdownFunc
	if cfg.TelemetryEnabled {
		shutdown, err = telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			return err
		}
		defer shutdown(context.WithoutCancel(ctx))
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		return err
	}
	defer logger.Sync()

	conn := jsonrpc.NewClient(cfg.RPCEndpoint, jsonrpc.WithTimeout(cfg.RPCTimeout))

	var clientOpts []ethereum.ClientOption
	if cfg.WSEndpoint != "" {
		clientOpts = append(clientOpts, ethereum.WithWebsocketEndpoint(cfg.WSEndpoint, websocket.WithHandshakeTimeout(cfg.RPCTimeout)))
	}
	client := ethereum.NewClient(conn, ethereum.KeccakHasher{}, clientOpts...)
	defer client.Close()

	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "chainhead",
		Description:           "Command-line interface for following chain heads, finalized blocks, and contract logs.",
		Usage:                 "chainhead [command] [flags]",
		Commands: []*cli.Command{
			headsCommand(client, cfg),
			logsCommand(client, cfg),
			finalizedCommand(client),
			blockCommand(client, cfg),
		},
	}

	return app.Run(ctx, os.Args)
}
