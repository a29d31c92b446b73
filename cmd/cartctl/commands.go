package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
	productrepo "storefront-cart/internal/repository/product"
)

// app holds what every command needs. open is called once per command run.
type app struct {
	catalog productrepo.Repository
	open    func(ctx context.Context) (*session, error)
}

type session struct {
	store   *cartstore.Store
	watcher cartstore.Watcher
	close   func()
}

func (a *app) withStore(cmd *cobra.Command, fn func(*session) error) error {
	s, err := a.open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open cart: %w", err)
	}
	if s.close != nil {
		defer s.close()
	}
	return fn(s)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "cartctl",
		Short:        "Inspect and edit the storefront cart",
		SilenceUsage: true,
	}
	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newSetCmd(a),
		newTotalsCmd(a),
		newWatchCmd(a),
	)
	return root
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cart lines in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *session) error {
				lines := s.store.Lines()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(lines)
				}
				printLines(cmd.OutOrStdout(), lines)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print lines as JSON")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		image       string
		price       string
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a product or increment its quantity",
		Long: `Add one unit of a product to the cart.

Without --title the product is looked up in the built-in catalog. With
--title the line is built from the flags instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.resolveItem(cmd.Context(), args[0], title, description, image, price)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(s *session) error {
				res, err := s.store.AddOrIncrement(cmd.Context(), item)
				return report(cmd.OutOrStdout(), res, err)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "line title (skips the catalog lookup)")
	cmd.Flags().StringVar(&description, "description", "", "line description")
	cmd.Flags().StringVar(&image, "image", "", "line image URL")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	return cmd
}

func (a *app) resolveItem(ctx context.Context, id, title, description, image, price string) (domain.Item, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Item{}, errors.New("product id must not be blank")
	}
	if title == "" {
		p, err := a.catalog.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Item{}, fmt.Errorf("product %q is not in the catalog; pass --title and --price", id)
		}
		if err != nil {
			return domain.Item{}, err
		}
		return p.CartItem(), nil
	}
	unit, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("invalid --price %q: %w", price, err)
	}
	if unit.IsNegative() {
		return domain.Item{}, fmt.Errorf("invalid --price %q: must not be negative", price)
	}
	return domain.Item{ID: id, Title: title, Description: description, Image: image, Price: unit}, nil
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *session) error {
				res, err := s.store.Remove(cmd.Context(), args[0])
				return report(cmd.OutOrStdout(), res, err)
			})
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <quantity>",
		Short: "Set the quantity of a cart line (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return a.withStore(cmd, func(s *session) error {
				res, err := s.store.SetQuantity(cmd.Context(), args[0], qty)
				return report(cmd.OutOrStdout(), res, err)
			})
		},
	}
}

func newTotalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Print line count, total quantity and total price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *session) error {
				fmt.Fprintf(cmd.OutOrStdout(), "lines: %d\nquantity: %d\ntotal: %s\n",
					s.store.LineCount(), s.store.TotalQuantity(), s.store.TotalPrice().StringFixed(2))
				return nil
			})
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the cart every time another process changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *session) error {
				if s.watcher == nil {
					return errors.New("the configured slot backend cannot signal changes")
				}
				out := cmd.OutOrStdout()
				sub := s.store.Subscribe(func(lines []domain.CartLine) {
					fmt.Fprintf(out, "cart changed: %d lines, quantity %d, total %s\n",
						len(lines), domain.TotalQuantity(lines), domain.TotalPrice(lines).StringFixed(2))
				})
				defer sub.Unsubscribe()

				err := s.store.Follow(cmd.Context(), s.watcher)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func printLines(w io.Writer, lines []domain.CartLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.ID, l.Title, l.Quantity, l.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	tw.Flush()
}

// report prints a mutation result. A failed slot write still prints what
// changed in memory before returning the error.
func report(w io.Writer, res cartstore.Result, err error) error {
	fmt.Fprintf(w, "%s %s: %s (quantity %d, cart %d)\n", res.Action, res.ID, res.Outcome, res.Quantity, res.TotalQuantity)
	if err != nil {
		return fmt.Errorf("cart not saved: %w", err)
	}
	return nil
}
