package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/channels"
	"github.com/monica-concierge/monica/internal/dependency"
	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

var (
	agentMessage string
	agentSession string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with the shopping assistant in the terminal",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentSession, "session", "s", "cli:direct", "Session ID")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if agentMessage != "" {
		return runSingleMessage(ctx, container.Looper(), container.MessageBus())
	}
	return runInteractive(ctx, container.Looper(), container.MessageBus())
}

// runSingleMessage sends one message to the agent and prints the response.
// Product cards published during the turn are printed before the reply.
func runSingleMessage(ctx context.Context, loop schema.AgentLooper, msgBus *bus.MessageBus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case msg := <-msgBus.OutboundChan():
				if products, ok := msg.Metadata()[bus.MetaProducts]; ok {
					_ = cmdutils.PrintJSON(os.Stdout, products)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	res := loop.ProcessDirect(ctx, agentMessage, agentSession, channels.CLISenderID)
	cancel()
	<-drained

	cmdutils.PrintResponse(os.Stdout, res)
	return nil
}

// runInteractive runs the terminal channel against the agent loop until the
// user exits or a signal arrives.
func runInteractive(ctx context.Context, loop schema.AgentLooper, msgBus *bus.MessageBus) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := channels.NewManager(msgBus, channels.NewCLIChannel(msgBus, chatIDFromSession(agentSession), os.Stdin, os.Stdout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return mgr.StartAll(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// chatIDFromSession extracts the chat id from a "channel:chat_id" session key.
func chatIDFromSession(key string) string {
	if _, chatID, ok := strings.Cut(key, ":"); ok {
		return chatID
	}
	return key
}
