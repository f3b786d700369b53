package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

// cartView is the JSON shape of the cart.
type cartView struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"totalItems"`
	TotalPrice float64     `json:"totalPrice"`
}

func viewCart(c *cart.Cart) cartView {
	items := c.Items()
	if items == nil {
		items = []cart.Item{}
	}
	t := c.Totals()
	return cartView{Items: items, TotalItems: t.Items, TotalPrice: t.Price}
}

func (o *RootOptions) printCart(cmd *cobra.Command, c *cart.Cart) error {
	v := viewCart(c)
	return o.output(cmd).emit(v, func(w textWriter) {
		if len(v.Items) == 0 {
			w.println("Your cart is empty.")
			return
		}
		rows := make([][]string, 0, len(v.Items))
		for _, it := range v.Items {
			rows = append(rows, []string{
				it.BookID, it.Title, strconv.Itoa(it.Quantity),
				domain.FormatRupiah(it.Price), domain.FormatRupiah(it.Subtotal()),
			})
		}
		w.println(renderTable([]string{"BOOK", "TITLE", "QTY", "PRICE", "SUBTOTAL"}, rows))
		w.printf("%d books  total %s\n", v.TotalItems, domain.FormatRupiah(v.TotalPrice))
	})
}

func newCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				return opts.printCart(cmd, svc.Cart)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				return opts.printCart(cmd, svc.Cart)
			})
		},
	})
	cmd.AddCommand(newCartAddCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "set <book-id> <quantity>",
		Short: "Change a line's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Cart.SetQuantity(ctx, args[0], qty); err != nil {
					return err
				}
				return opts.printCart(cmd, svc.Cart)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Cart.RemoveItem(ctx, args[0]); err != nil {
					return err
				}
				return opts.printCart(cmd, svc.Cart)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Cart.Clear(ctx); err != nil {
					return err
				}
				return opts.printCart(cmd, svc.Cart)
			})
		},
	})
	return cmd
}

func newCartAddCommand(opts *RootOptions) *cobra.Command {
	var qty int

	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a book to the cart",
		Long:  "Add copies of a book. The current price and stock are fetched first; a cart line never exceeds the stock.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if qty < 1 {
				return fmt.Errorf("invalid quantity %d", qty)
			}
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				b, err := svc.Client.GetBook(ctx, args[0])
				if err != nil {
					return err
				}
				for range qty {
					if err := svc.Cart.AddItem(ctx, b.ID.String(), b.Title, b.Price, b.StockQuantity); err != nil {
						return err
					}
				}
				return opts.printCart(cmd, svc.Cart)
			})
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 1, "number of copies")
	return cmd
}
