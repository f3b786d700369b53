// Package cli implements the hogwarts command line: the TUI launcher and the
// scriptable subcommands around the same services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/internal/config"
	"github.com/naveenspark/hogwarts/internal/logging"
	"github.com/naveenspark/hogwarts/internal/store"
	"github.com/naveenspark/hogwarts/internal/tui"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Version    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var errNotSignedIn = errors.New("not signed in. run: hogwarts login")

// NewRootCommand creates the root command. Run without a subcommand it opens
// the TUI, or greets a visitor who has never signed in.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "hogwarts",
		Short:         "Hogwarts Library in your terminal",
		Long:          "Browse the Hogwarts Library catalog, keep a cart and place orders from the terminal.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.hogwarts/config.yaml)")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newWhoamiCommand(opts))
	cmd.AddCommand(newBooksCommand(opts))
	cmd.AddCommand(newBookCommand(opts))
	cmd.AddCommand(newGenresCommand(opts))
	cmd.AddCommand(newCartCommand(opts))
	cmd.AddCommand(newCheckoutCommand(opts))
	cmd.AddCommand(newOrdersCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCommand(version)
	if err := cmd.ExecuteContext(ctx); err != nil {
		format, _ := cmd.PersistentFlags().GetString("format") //nolint:errcheck // flag is always registered
		out := newOutput(format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		out.failure(err)
		return ExitFailure
	}
	return ExitSuccess
}

// open loads config and builds the services. Callers must Close them.
func (o *RootOptions) open(ctx context.Context) (*app.Services, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogFile, cfg.LogLevel, o.Verbose)
	if err != nil {
		return nil, err
	}
	svc, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Sync() //nolint:errcheck // best-effort flush
		return nil, err
	}
	return svc, nil
}

// withServices runs fn over freshly opened services and closes them after.
func (o *RootOptions) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Services) error) (err error) {
	ctx := cmd.Context()
	svc, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, svc)
}

// requireSession verifies the persisted session with the API.
func requireSession(ctx context.Context, svc *app.Services) error {
	svc.Start(ctx)
	if !svc.Session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func (o *RootOptions) output(cmd *cobra.Command) output {
	return newOutput(o.Format, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func runTUI(opts *RootOptions, cmd *cobra.Command) error {
	return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
		signedIn, err := hasStoredToken(ctx, svc.Store)
		if err != nil {
			return err
		}
		if !signedIn {
			printGreeting(cmd.OutOrStdout())
			return nil
		}

		a := tui.NewApp(svc, opts.Version)
		defer a.Close()
		p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	})
}

// hasStoredToken reports whether a previous login left a token behind. It
// does not check the token with the API.
func hasStoredToken(ctx context.Context, st store.Store) (bool, error) {
	tok, err := st.Get(ctx, store.KeyAuthToken)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read session: %w", err)
	}
	return len(tok) > 0, nil
}

func newVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.output(cmd).emit(map[string]string{"version": opts.Version}, func(w textWriter) {
				w.printf("hogwarts %s\n", opts.Version)
			})
		},
	}
}
