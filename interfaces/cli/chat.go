package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	infraconfig "github.com/felixgeelhaar/gateway-go/infrastructure/config"
	"github.com/felixgeelhaar/gateway-go/interfaces/api"
)

// chatOptions holds options for the chat command.
type chatOptions struct {
	configPath string
	watch      bool
}

// newChatCmd creates the interactive chat command.
func (a *App) newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation with the configured model backend.

The gateway launches the configured tool providers, loads any
WebAssembly tools, and then reads messages from standard input. Each
message runs a full orchestration session: the model may call tools any
number of times before producing its reply.

Commands inside the conversation:
  /tools      list the current tool catalog
  /providers  list running tool providers
  /history    print the conversation log
  /clear      clear the conversation (keeps the system prompt)
  /quit       exit

Examples:
  gateway chat -c config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload provider catalog when the configuration file changes")

	return cmd
}

// runChat loads the configuration, builds the gateway, and runs the
// read-eval loop until EOF, /quit, or a shutdown signal.
func (a *App) runChat(ctx context.Context, opts *chatOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loader := infraconfig.NewLoader()
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	gw, err := api.FromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer gw.Close()

	if opts.watch {
		watcher, err := infraconfig.NewWatcher(opts.configPath, loader, func(updated *config.GatewayConfig) {
			gw.ReconcileProviders(ctx, updated.Providers)
		})
		if err != nil {
			return fmt.Errorf("watching configuration: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watching configuration: %w", err)
		}
		defer watcher.Stop()
	}

	fmt.Fprintf(a.stdout, "%s (model %s, %d tools)\n", cfg.Name, cfg.Model.Name, len(gw.Tools()))
	fmt.Fprintf(a.stdout, "Type a message, or /quit to exit.\n\n")

	scanner := bufio.NewScanner(a.stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(a.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stdout, "\nshutting down")
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if a.runChatCommand(gw, line) {
				return nil
			}
			continue
		}

		sess, reply, err := gw.SendMessage(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(a.stdout, "\nshutting down")
				return nil
			}
			fmt.Fprintf(a.stderr, "session failed: %v\n", err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\n", reply.Content)
		if sess.Turns > 1 {
			fmt.Fprintf(a.stdout, "(%d turns, %s)\n", sess.Turns, sess.Duration().Round(time.Millisecond))
		}
	}
	return scanner.Err()
}

// runChatCommand handles a slash command. It returns true when the
// conversation should end.
func (a *App) runChatCommand(gw *api.Gateway, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/tools":
		specs := gw.Tools()
		if len(specs) == 0 {
			fmt.Fprintln(a.stdout, "no tools registered")
			return false
		}
		for _, s := range specs {
			fmt.Fprintf(a.stdout, "  %s  %s\n", s.Name, s.Description)
		}
	case "/providers":
		records := gw.Providers()
		if len(records) == 0 {
			fmt.Fprintln(a.stdout, "no providers running")
			return false
		}
		for _, r := range records {
			fmt.Fprintf(a.stdout, "  %s  alive=%t tools=%d\n", r.Name, r.Alive, len(r.Tools))
		}
	case "/history":
		for _, m := range gw.History() {
			content := m.Content
			if m.IsToolResult() {
				content = fmt.Sprintf("[%s] %s", m.ToolName, content)
			}
			fmt.Fprintf(a.stdout, "  %-9s %s\n", m.Role, content)
		}
	case "/clear":
		gw.ClearHistory()
		fmt.Fprintln(a.stdout, "conversation cleared")
	default:
		fmt.Fprintf(a.stdout, "unknown command %q\n", line)
	}
	return false
}
