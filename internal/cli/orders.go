package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

const (
	msgOrderPlaced    = "Order placed successfully!"
	msgOrderCancelled = "Order cancelled."
)

func newCheckoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place the cart as one order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := requireSession(ctx, svc); err != nil {
					return err
				}
				tx, err := svc.Checkout.Submit(ctx)
				if err != nil {
					return err
				}
				return opts.output(cmd).emit(tx, func(w textWriter) {
					w.printf("%s order %s\n", msgOrderPlaced, tx.ID)
					printOrder(w, *tx)
				})
			})
		},
	}
}

type ordersOptions struct {
	sort  string
	query string
	page  int
	limit int
}

func newOrdersCommand(opts *RootOptions) *cobra.Command {
	var oo ordersOptions

	list := func(cmd *cobra.Command, args []string) error {
		if oo.sort != "" && !slices.Contains(domain.OrderSorts, oo.sort) {
			return fmt.Errorf("invalid sort %q: must be one of %v", oo.sort, domain.OrderSorts)
		}
		return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
			if err := requireSession(ctx, svc); err != nil {
				return err
			}
			txs, err := svc.Client.ListTransactions(ctx, oo.page, oo.limit)
			if err != nil {
				return err
			}
			txs = domain.SortTransactions(domain.FilterTransactions(txs, oo.query), oo.sort)
			if txs == nil {
				txs = []domain.Transaction{}
			}
			return opts.output(cmd).emit(txs, func(w textWriter) {
				if len(txs) == 0 {
					w.println("No items found.")
					return
				}
				rows := make([][]string, 0, len(txs))
				for _, t := range txs {
					n, amount := t.Totals()
					rows = append(rows, []string{
						t.ID.String(), t.CreatedAt.Format("2006-01-02 15:04"),
						orderTitles(t), strconv.Itoa(n), domain.FormatRupiah(amount),
					})
				}
				w.println(renderTable([]string{"ID", "DATE", "BOOKS", "QTY", "TOTAL"}, rows))
			})
		})
	}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.PersistentFlags().StringVar(&oo.sort, "sort", "", "sort order ("+strings.Join(domain.OrderSorts, "|")+")")
	cmd.PersistentFlags().StringVarP(&oo.query, "query", "q", "", "filter by order id or book title")
	cmd.PersistentFlags().IntVar(&oo.page, "page", 0, "page number")
	cmd.PersistentFlags().IntVar(&oo.limit, "limit", 0, "orders per page")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE:  list,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := requireSession(ctx, svc); err != nil {
					return err
				}
				tx, err := svc.Client.GetTransaction(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.output(cmd).emit(tx, func(w textWriter) {
					w.printf("ORDER %s  %s\n", tx.ID, tx.CreatedAt.Format("2006-01-02 15:04"))
					printOrder(w, *tx)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := requireSession(ctx, svc); err != nil {
					return err
				}
				if err := svc.Client.DeleteTransaction(ctx, args[0]); err != nil {
					return err
				}
				return opts.output(cmd).emit(map[string]string{"id": args[0], "message": msgOrderCancelled}, func(w textWriter) {
					w.println(msgOrderCancelled)
				})
			})
		},
	})
	return cmd
}

func orderTitles(t domain.Transaction) string {
	titles := make([]string, 0, len(t.Items))
	for _, it := range t.Items {
		if it.Book != nil {
			titles = append(titles, it.Book.Title)
		}
	}
	return truncate(strings.Join(titles, ", "), 40)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printOrder(w textWriter, t domain.Transaction) {
	rows := make([][]string, 0, len(t.Items))
	for _, it := range t.Items {
		title, price := it.BookID.String(), 0.0
		if it.Book != nil {
			title, price = it.Book.Title, it.Book.Price
		}
		rows = append(rows, []string{
			title, strconv.Itoa(it.Quantity), domain.FormatRupiah(price), domain.FormatRupiah(it.Subtotal()),
		})
	}
	if len(rows) > 0 {
		w.println(renderTable([]string{"BOOK", "QTY", "PRICE", "SUBTOTAL"}, rows))
	}
	n, amount := t.Totals()
	w.printf("%d books  total %s\n", n, domain.FormatRupiah(amount))
}
