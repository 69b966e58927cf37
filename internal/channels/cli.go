package channels

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

// CLISenderID is the sender id of terminal messages.
const CLISenderID = "user"

var cliExitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// CLIChannel wires a terminal into the agent: input lines go to the inbound
// bus and replies delivered through Send are printed until the turn completes.
type CLIChannel struct {
	Base
	chatID  string
	in      io.Reader
	out     io.Writer
	replies chan bus.OutboundMessage
}

// NewCLIChannel creates a CLIChannel for chatID reading from in and printing to out.
func NewCLIChannel(b bus.Bus, chatID string, in io.Reader, out io.Writer) *CLIChannel {
	return &CLIChannel{
		Base:    NewBase(bus.ChannelCLI, b, nil),
		chatID:  chatID,
		in:      in,
		out:     out,
		replies: make(chan bus.OutboundMessage, 16),
	}
}

func (c *CLIChannel) Name() string { return string(bus.ChannelCLI) }

// Start runs the REPL: reads lines, dispatches them to the agent, and prints
// each reply. Blocks until ctx is cancelled or input is closed.
func (c *CLIChannel) Start(ctx context.Context) error {
	fmt.Fprintf(c.out, "%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", cmdutils.Logo)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, "You: ")

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			return ctx.Err()
		}

		if line == "" {
			continue
		}
		if cliExitCommands[strings.ToLower(line)] {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}

		c.HandleMessage(CLISenderID, c.chatID, line, nil, nil)
		c.waitForTurn(ctx)
	}
}

// waitForTurn prints replies until the agent marks the turn complete.
func (c *CLIChannel) waitForTurn(ctx context.Context) {
	for {
		select {
		case msg := <-c.replies:
			switch {
			case msg.Flag(bus.MetaTurnComplete):
				return
			case msg.Flag(bus.MetaProgress):
				fmt.Fprintf(c.out, "  ↳ %s\n", msg.Content())
			case msg.Metadata()[bus.MetaProducts] != nil:
				c.printProducts(msg.Metadata()[bus.MetaProducts])
			default:
				cmdutils.PrintResponse(c.out, msg.Content())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *CLIChannel) printProducts(v any) {
	products, ok := v.([]catalog.Selection)
	if !ok || len(products) == 0 {
		return
	}
	fmt.Fprintln(c.out)
	for _, p := range products {
		fmt.Fprintf(c.out, "  • %s  %s\n", p.Name, p.Price)
	}
}

// Send hands an outbound agent message to the REPL.
func (c *CLIChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if msg.ChatID() != c.chatID {
		return nil
	}
	select {
	case c.replies <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
