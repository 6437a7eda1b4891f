package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
	"github.com/beep-labs/beep-go/checkout"
	"github.com/beep-labs/beep-go/config"
	"github.com/beep-labs/beep-go/mcpserver"
	"github.com/beep-labs/beep-go/settlement"
)

func newServeCmd() *cobra.Command {
	var (
		cluster   string
		walletKey string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Beep MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				return fmt.Errorf("BEEP_API_KEY is required")
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			server, streamer, err := buildServer(cfg, settlement.Cluster(cluster), walletKey, logger)
			if err != nil {
				return err
			}
			defer streamer.StopAll()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = server.Run(ctx, cfg.CommunicationMode, cfg.Port)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cluster, "cluster", string(settlement.ClusterMainnet), "Solana cluster: mainnet or devnet")
	cmd.Flags().StringVar(&walletKey, "wallet-key", "", "base58 private key enabling in-process settlement")

	return cmd
}

func buildServer(cfg *config.Config, cluster settlement.Cluster, walletKey string, logger *zap.Logger) (*mcpserver.Server, *checkout.Streamer, error) {
	clientOpts := []beep.ClientOption{beep.WithLogger(logger)}
	if cfg.ServerURL != "" {
		clientOpts = append(clientOpts, beep.WithBaseURL(cfg.ServerURL))
	}
	api := beep.NewClient(cfg.APIKey, clientOpts...)

	resolver := checkout.NewResolver(api, settlement.USDCDecimals, checkout.WithResolverLogger(logger))
	initiator := checkout.NewInitiator(api, cfg.APIKey, checkout.WithInitiatorLogger(logger))
	flow := checkout.NewFlow(resolver, initiator, settlement.USDCDecimals, checkout.WithFlowLogger(logger))
	streamer := checkout.NewStreamer(flow, logger)

	chain, err := settlement.NewChainClient(cluster)
	if err != nil {
		return nil, nil, err
	}

	poller := settlement.NewPoller(chain,
		settlement.WithPollInterval(cfg.PollInterval),
		settlement.WithPollTimeout(cfg.PollTimeout),
		settlement.WithInvoiceAPI(api),
		settlement.WithPollerLogger(logger))

	deps := mcpserver.Deps{
		API:      api,
		Flow:     flow,
		Streamer: streamer,
		Poller:   poller,
		Chain:    chain,
		Logger:   logger,
	}

	if walletKey != "" {
		wallet, err := settlement.NewLocalWallet(walletKey)
		if err != nil {
			return nil, nil, err
		}
		submitter, err := settlement.NewSubmitter(chain, wallet, cluster, settlement.WithSubmitterLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		deps.Submitter = submitter
	}

	return mcpserver.New(deps), streamer, nil
}
