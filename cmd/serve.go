package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/monica-concierge/monica/internal/channels"
	"github.com/monica-concierge/monica/internal/dependency"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"gateway"},
	Short:   "Start the storefront gateway (SSE, WebSocket and catalog API)",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Gateway port (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Gateway.Port = servePort
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	web := channels.NewWebChannel(channels.WebConfig{
		Addr:           addr,
		AllowFrom:      cfg.Gateway.AllowFrom,
		MetricsToken:   cfg.Gateway.MetricsToken,
		MaxUploadBytes: int64(cfg.Gateway.MaxUploadMB) << 20,
	}, container.MessageBus(), container.Catalog(), container.Artifacts(), container.Registry(), slog.Default())

	mgr := channels.NewManager(container.MessageBus(), web)
	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(mgr.EnabledChannels(), ", "))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.AgentLoop().Run(gctx) })
	g.Go(func() error { return mgr.StartAll(gctx) })

	fmt.Printf("%s Gateway running on %s. Press Ctrl+C to stop.\n", cmdutils.Logo, addr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
