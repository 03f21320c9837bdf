package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/utafrali/gomarket/internal/app"
	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/domain"
	"github.com/utafrali/gomarket/pkg/logger"
)

// NewCartCommand creates the cart command group. Each subcommand opens the
// configured storage, loads the saved cart, applies one operation and prints
// the result.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the saved cart",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the saved cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(context.Context, *cart.Store) error { return nil })
		},
	})

	cmd.AddCommand(newAddCommand(opts))

	cmd.AddCommand(&cobra.Command{
		Use:   "increment <id>",
		Short: "Raise a line item's quantity by one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, s *cart.Store) error {
				return s.Increment(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decrement <id>",
		Short: "Lower a line item's quantity by one (it may go below zero)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, s *cart.Store) error {
				return s.Decrement(ctx, args[0])
			})
		},
	})

	return cmd
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	var item domain.NewProduct
	var price string

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a product with quantity 1; a product already in the cart is left as it is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.ParseFloat(price, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --price", err)
			}
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid --price %q: must be a finite number", price)}
			}
			item.ID = args[0]
			item.Price = p
			return withStore(cmd, opts, func(ctx context.Context, s *cart.Store) error {
				return s.AddToCart(ctx, item)
			})
		},
	}

	cmd.Flags().StringVar(&item.Title, "title", "", "display name")
	cmd.Flags().StringVar(&item.ImageURL, "image-url", "", "display image reference")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// withStore runs op against the saved cart and prints the cart afterwards.
func withStore(cmd *cobra.Command, opts *RootOptions, op func(context.Context, *cart.Store) error) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewText(cfg.LogLevel, cmd.ErrOrStderr())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fail := func(message string, err error) error {
		_ = out.Error(err)
		return WrapExitError(ExitFailure, message, err)
	}

	backend, err := app.OpenBackend(ctx, cfg, log)
	if err != nil {
		return fail("open storage", err)
	}
	defer backend.Close()

	store := app.NewStore(cfg, backend, log)
	if err := store.Load(ctx); err != nil {
		return fail("load cart", err)
	}
	if err := op(ctx, store); err != nil {
		return fail("update cart", err)
	}

	return out.Cart(store.Products())
}
