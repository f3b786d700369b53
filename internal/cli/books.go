package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

type booksOptions struct {
	page  int
	limit int
	query string
	sort  string
	genre string
}

func newBooksCommand(opts *RootOptions) *cobra.Command {
	var bo booksOptions

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Long:  "List one page of the catalog, optionally searched, sorted or narrowed to a genre.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bo.sort != "" && !slices.Contains(domain.BookSorts, bo.sort) {
				return fmt.Errorf("invalid sort %q: must be one of %v", bo.sort, domain.BookSorts)
			}
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				return listBooks(ctx, cmd, opts, svc, bo)
			})
		},
	}

	cmd.Flags().IntVar(&bo.page, "page", 1, "page number")
	cmd.Flags().IntVar(&bo.limit, "limit", 0, "books per page (default from config)")
	cmd.Flags().StringVarP(&bo.query, "query", "q", "", "search title or writer")
	cmd.Flags().StringVar(&bo.sort, "sort", "", "sort order ("+strings.Join(domain.BookSorts, "|")+")")
	cmd.Flags().StringVar(&bo.genre, "genre", "", "genre name or id")
	return cmd
}

func listBooks(ctx context.Context, cmd *cobra.Command, opts *RootOptions, svc *app.Services, bo booksOptions) error {
	q := client.BookQuery{Page: bo.page, Limit: bo.limit, Query: bo.query, Sort: bo.sort}
	if q.Limit <= 0 {
		q.Limit = svc.Config.PageSize
	}

	var (
		page   *domain.BookPage
		genres []domain.Genre
	)
	if bo.genre != "" {
		gs, err := svc.Client.ListGenres(ctx)
		if err != nil {
			return err
		}
		g, ok := findGenre(gs, bo.genre)
		if !ok {
			return fmt.Errorf("unknown genre %q", bo.genre)
		}
		q.GenreID = g.ID.String()
		if page, err = svc.Client.ListBooks(ctx, q); err != nil {
			return err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			p, err := svc.Client.ListBooks(gctx, q)
			page = p
			return err
		})
		g.Go(func() error {
			// The genre footer is optional.
			if gs, err := svc.Client.ListGenres(gctx); err == nil {
				genres = gs
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return opts.output(cmd).emit(page, func(w textWriter) {
		if len(page.Data) == 0 {
			w.println("No books found.")
			return
		}
		rows := make([][]string, 0, len(page.Data))
		for _, b := range page.Data {
			rows = append(rows, []string{
				b.ID.String(), b.Title, b.Writer, b.GenreName(),
				domain.FormatRupiah(b.Price), stockLabel(b),
			})
		}
		w.println(renderTable([]string{"ID", "TITLE", "WRITER", "GENRE", "PRICE", "STOCK"}, rows))
		w.printf("page %d of %d  (%d books)\n", page.Meta.Page, max(page.Meta.Pages, 1), page.Meta.Total)
		if len(genres) > 0 {
			names := make([]string, len(genres))
			for i, g := range genres {
				names[i] = g.Name
			}
			w.println(dimStyle.Render("genres: " + strings.Join(names, ", ")))
		}
	})
}

// findGenre matches by id, then by name ignoring case.
func findGenre(genres []domain.Genre, s string) (domain.Genre, bool) {
	s = strings.TrimSpace(s)
	for _, g := range genres {
		if g.ID.String() == s {
			return g, true
		}
	}
	for _, g := range genres {
		if strings.EqualFold(g.Name, s) {
			return g, true
		}
	}
	return domain.Genre{}, false
}

func stockLabel(b domain.Book) string {
	if !b.InStock() {
		return "out of stock"
	}
	return strconv.Itoa(b.StockQuantity)
}

func newBookCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				b, err := svc.Client.GetBook(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.output(cmd).emit(b, func(w textWriter) {
					w.println(headerStyle.UnsetPadding().Render(b.Title))
					w.printf("by %s\n\n", b.Writer)
					if b.Publisher != "" {
						w.printf("publisher  %s\n", b.Publisher)
					}
					if b.PublicationYear > 0 {
						w.printf("year       %d\n", b.PublicationYear)
					}
					if g := b.GenreName(); g != "" {
						w.printf("genre      %s\n", g)
					}
					w.printf("price      %s\n", domain.FormatRupiah(b.Price))
					w.printf("stock      %s\n", stockLabel(*b))
					if b.Description != "" {
						w.printf("\n%s\n", b.Description)
					}
				})
			})
		},
	}
}

func newGenresCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				genres, err := svc.Client.ListGenres(ctx)
				if err != nil {
					return err
				}
				return opts.output(cmd).emit(genres, func(w textWriter) {
					if len(genres) == 0 {
						w.println("No genres found.")
						return
					}
					rows := make([][]string, len(genres))
					for i, g := range genres {
						rows[i] = []string{g.ID.String(), g.Name}
					}
					w.println(renderTable([]string{"ID", "NAME"}, rows))
				})
			})
		},
	}
}
