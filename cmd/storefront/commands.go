package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/phrazzld/storefront/internal/config"
	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/platform/logger"
)

const shutdownTimeout = 30 * time.Second

var errNotLoggedIn = errors.New("not logged in")

type commandFunc func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Manage storefront accounts and carts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newRegisterCmd(&configPath),
		newLoginCmd(&configPath),
		newLogoutCmd(&configPath),
		newWhoamiCmd(&configPath),
		newCartCmd(&configPath),
		newServeCmd(&configPath),
	)
	return root
}

// withApp returns a RunE that builds the application, runs fn and tears the
// application down again, flushing every write fn queued.
func withApp(configPath *string, fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		log, err := logger.Setup(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to set up logger: %w", err)
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx := logger.WithLogger(parent, log)

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}

		runErr := a.start(ctx)
		if runErr == nil {
			runErr = fn(ctx, cmd, a, args)
		}

		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Join(runErr, a.close(closeCtx))
	}
}

// withSession is withApp for commands that need a logged-in user.
func withSession(configPath *string, fn commandFunc) func(*cobra.Command, []string) error {
	return withApp(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if _, ok := a.identity.Current(); !ok {
			return errNotLoggedIn
		}
		return fn(ctx, cmd, a, args)
	})
}

func newRegisterCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register EMAIL SECRET",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			user, err := a.identity.Register(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", user.Email, user.ID)
			return nil
		}),
	}
}

func newLoginCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL SECRET",
		Short: "Log in to an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			user, err := a.identity.Login(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.Email)
			return nil
		}),
	}
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.identity.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the current session",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			user, ok := a.identity.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), errNotLoggedIn)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
			return nil
		}),
	}
}

func newCartCmd(configPath *string) *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the current user's cart",
	}

	var (
		title  string
		price  string
		qty    int
		images []string
	)
	addCmd := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			unitPrice, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}
			item := domain.CartItem{
				ProductID: productID,
				Title:     title,
				UnitPrice: unitPrice,
				Quantity:  qty,
				ImageRefs: images,
			}
			if err := a.sessionCart().AddToCart(ctx, item); err != nil {
				return err
			}
			return printTotal(cmd, a)
		}),
	}
	addCmd.Flags().StringVar(&title, "title", "", "product title")
	addCmd.Flags().StringVar(&price, "price", "0", "unit price")
	addCmd.Flags().IntVar(&qty, "qty", 1, "quantity to add")
	addCmd.Flags().StringSliceVar(&images, "image", nil, "image reference (repeatable)")

	removeCmd := &cobra.Command{
		Use:   "remove PRODUCT_ID",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			if err := a.sessionCart().RemoveFromCart(ctx, productID); err != nil {
				return err
			}
			return printTotal(cmd, a)
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set PRODUCT_ID QUANTITY",
		Short: "Set the quantity of a product; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			if err := a.sessionCart().SetQuantity(ctx, productID, quantity); err != nil {
				return err
			}
			return printTotal(cmd, a)
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: withSession(configPath, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.sessionCart().ClearCart(ctx); err != nil {
				return err
			}
			return printTotal(cmd, a)
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the items in the cart",
		Args:  cobra.NoArgs,
		RunE: withSession(configPath, func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			for _, it := range a.carts.Items() {
				fmt.Fprintf(out, "%d\t%s\t%s x %d\t%s\n",
					it.ProductID,
					it.Title,
					it.UnitPrice.StringFixed(2),
					it.Quantity,
					it.Subtotal().StringFixed(2))
			}
			return nil
		}),
	}

	totalCmd := &cobra.Command{
		Use:   "total",
		Short: "Print the cart total",
		Args:  cobra.NoArgs,
		RunE: withSession(configPath, func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			return printTotal(cmd, a)
		}),
	}

	cartCmd.AddCommand(addCmd, removeCmd, setCmd, clearCmd, listCmd, totalCmd)
	return cartCmd
}

func parseProductID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q: %w", arg, err)
	}
	return id, nil
}

func printTotal(cmd *cobra.Command, a *app) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), a.carts.GetTotal().StringFixed(2))
	return err
}
