package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/cartstore/app/internal/config"
	domcart "example.com/cartstore/app/internal/domain/cart"
	"example.com/cartstore/app/internal/infra/logging"
	"example.com/cartstore/app/internal/infra/persistence"
	"example.com/cartstore/app/internal/infra/security"
	cartuc "example.com/cartstore/app/internal/usecase/cart"
)

const defaultDriver = persistence.DriverBunt

type cli struct {
	driver    string
	dsn       string
	path      string
	namespace string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "cartctl",
		Short:        "Inspect and edit the shopping cart slot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.driver, "driver", defaultDriver, "storage driver (memory, bunt, redis, mysql, postgres, sqlite)")
	flags.StringVar(&c.dsn, "dsn", "", "connection string for mysql/postgres, address for redis")
	flags.StringVar(&c.path, "path", "cart.db", "database file for bunt/sqlite")
	flags.StringVar(&c.namespace, "namespace", "", "slot key prefix")

	root.AddCommand(
		c.addCmd(),
		c.removeCmd(),
		c.getCmd(),
		c.updateCmd(),
		c.priceCmd(),
		c.clearCmd(),
		c.tokenCmd(),
	)
	return root
}

// load resolves configuration. Flags given on the command line win over the
// environment.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "text")

	flags := cmd.Flags()
	if !flags.Changed("driver") {
		if v, ok := os.LookupEnv("CART_DRIVER"); ok && v != "" {
			c.driver = v
		}
	}
	if !flags.Changed("dsn") {
		c.dsn = cfg.DSN
		if c.dsn == "" {
			c.dsn = cfg.RedisAddr
		}
	}
	if !flags.Changed("path") {
		c.path = cfg.File
	}
	if !flags.Changed("namespace") {
		c.namespace = cfg.Namespace
	}
	return nil
}

// withService opens the configured backend, runs fn and releases the backend.
func (c *cli) withService(ctx context.Context, fn func(*cartuc.Service) error) error {
	slots, closeSlots, err := persistence.Open(ctx, persistence.Options{
		Driver:    c.driver,
		DSN:       c.dsn,
		RedisAddr: c.dsn,
		File:      c.path,
		Logger:    c.log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSlots(); err != nil {
			c.log.WithError(err).Warn("error closing cart storage")
		}
	}()

	svc := cartuc.NewService(slots, cartuc.WithNamespace(c.namespace), cartuc.WithLogger(c.log))
	return fn(svc)
}

func (c *cli) addCmd() *cobra.Command {
	var rawID string
	cmd := &cobra.Command{
		Use:   "add ITEM_JSON",
		Short: "Append an item unless one with the same id is already in the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := domcart.ParseItem([]byte(args[0]))
			if err != nil {
				return err
			}
			id := item.ID()
			if cmd.Flags().Changed("id") {
				id = domcart.ParseIdentifierText(rawID)
			}

			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				outcome, err := svc.AddToCart(cmd.Context(), item, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rawID, "id", "", "identifier to check for duplicates (defaults to the item's id)")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove every item with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domcart.ParseIdentifierText(args[0])
			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				outcome, err := svc.RemoveFromCart(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the cart, or null when it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				cart, err := svc.GetCart(cmd.Context())
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(cart, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
}

func (c *cli) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update ID QUANTITY",
		Short: "Set the quantity of the first item with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domcart.ParseIdentifierText(args[0])
			quantity := domcart.StringToNumber(args[1])
			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				outcome, err := svc.UpdateQuantity(cmd.Context(), id, quantity)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
}

func (c *cli) priceCmd() *cobra.Command {
	var charges cartuc.Charges
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print the cart total plus tax and delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				total, err := svc.GetPrice(cmd.Context(), charges)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatTotal(total))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&charges.Tax, "tax", 0, "tax added to the total")
	cmd.Flags().Float64Var(&charges.Delivery, "delivery", 0, "delivery charge added to the total")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the cart slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *cartuc.Service) error {
				if err := svc.ClearCart(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared")
				return nil
			})
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue a bearer token for the cart API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := security.NewJWTService(c.cfg.JWTSecret, c.cfg.JWTExpiration).GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func formatTotal(total float64) string {
	switch {
	case math.IsNaN(total):
		return "NaN"
	case math.IsInf(total, 1):
		return "Infinity"
	case math.IsInf(total, -1):
		return "-Infinity"
	}
	return humanize.Commaf(total)
}
