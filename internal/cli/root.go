package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/utafrali/gomarket/internal/config"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// RootOptions holds global flags for all commands. Flags that are set
// override the matching environment variables.
type RootOptions struct {
	Format     string
	LogLevel   string
	Driver     string
	SQLitePath string
	LoadKey    string
}

// NewRootCommand creates the root command for the gomarket CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gomarket",
		Short:         "GoMarket shopping cart",
		Long:          "Serve and inspect the GoMarket device cart: line items persisted to local key-value storage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{
					Code:    ExitCommandError,
					Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats),
				}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")
	flags.StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|memory|redis|postgres); overrides STORAGE_DRIVER")
	flags.StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite database file; overrides SQLITE_PATH")
	flags.StringVar(&opts.LoadKey, "load-key", "", "storage key read on startup; overrides CART_LOAD_KEY")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))

	return cmd
}

// loadConfig reads the environment with flag overrides applied.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := make(map[string]string)
	set := func(flag, env, value string) {
		if cmd.Flags().Changed(flag) {
			overrides[env] = value
		}
	}
	set("log-level", "LOG_LEVEL", o.LogLevel)
	set("driver", "STORAGE_DRIVER", o.Driver)
	set("sqlite-path", "SQLITE_PATH", o.SQLitePath)
	set("load-key", "CART_LOAD_KEY", o.LoadKey)

	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}
