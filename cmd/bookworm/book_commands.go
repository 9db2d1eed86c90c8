package main

import (
	"fmt"
	"strconv"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/ablbsk/bookworm-api/internal/di/providers"
	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/search"
	"github.com/ablbsk/bookworm-api/internal/service"
)

func newTopCommand(ctx *commandContext) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most liked and most collected books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				collections := do.MustInvoke[*service.CollectionService](i)

				top, err := collections.TopBooks(cmd.Context(), n)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Most liked:")
				fmt.Fprintln(out, renderBooks(top.TopLiked, func(b domain.Book) int { return b.LikeCount }, "Likes"))
				fmt.Fprintln(out, "Most collected:")
				fmt.Fprintln(out, renderBooks(top.TopReferenced, func(b domain.Book) int { return b.ReferenceCount }, "Collections"))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&n, "number", "n", service.DefaultTopBooks, "Books per list")
	return cmd
}

func renderBooks(books []domain.Book, count func(domain.Book) int, countLabel string) string {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{b.ExternalID, b.Title, b.Authors, strconv.Itoa(count(b))})
	}
	return renderTable(
		[]string{"ID", "Title", "Authors", countLabel},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var params search.Params

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the locally cached books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Query = args[0]
			return ctx.withContainer(func(i do.Injector) error {
				searches := do.MustInvoke[*service.SearchService](i)

				result, err := searches.Search(cmd.Context(), params)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(result.Hits))
				for _, hit := range result.Hits {
					rows = append(rows, []string{hit.ExternalID, hit.Title, hit.Authors, strconv.FormatFloat(hit.Score, 'f', 2, 64)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d matches in %dms\n", result.Total, result.TookMs)
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Authors", "Score"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&params.Format, "format", "", "Only books in this format")
	cmd.Flags().IntVar(&params.MinYear, "min-year", 0, "Earliest publication year")
	cmd.Flags().IntVar(&params.MaxYear, "max-year", 0, "Latest publication year")
	cmd.Flags().IntVar(&params.Limit, "limit", 20, "Maximum results")
	return cmd
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the external catalog",
	}

	var page int
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the external catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				collections := do.MustInvoke[*service.CollectionService](i)

				result, err := collections.SearchCatalog(cmd.Context(), args[0], page)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(result.Results))
				for _, r := range result.Results {
					rows = append(rows, []string{r.ExternalID, r.Title, r.Authors, strconv.FormatFloat(r.AverageRating, 'f', 2, 64)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Page %d, %d results\n", result.Page, result.TotalResults)
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Authors", "Rating"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	searchCmd.Flags().IntVar(&page, "page", 1, "Result page")

	showCmd := &cobra.Command{
		Use:   "show <external-id>",
		Short: "Show the catalog record for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				collections := do.MustInvoke[*service.CollectionService](i)

				view, err := collections.FetchExternal(cmd.Context(), args[0], "")
				if err != nil {
					return err
				}

				rows := [][]string{
					{"ID", view.ExternalID},
					{"Title", view.Title},
					{"Authors", view.Authors},
					{"Pages", strconv.Itoa(view.PageCount)},
					{"Rating", strconv.FormatFloat(view.AverageRating, 'f', 2, 64)},
					{"Publisher", view.Publisher},
					{"Format", view.Format},
					{"Collections", strconv.Itoa(view.ReferenceCount)},
					{"Likes", strconv.Itoa(view.LikeCount)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}

	catalogCmd.AddCommand(searchCmd, showCmd)
	return catalogCmd
}

func newGCCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete orphaned books and expired catalog cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				sweeper := do.MustInvoke[*service.Sweeper](i)
				cacheHandle := do.MustInvoke[*providers.SearchCacheHandle](i)

				deleted, err := sweeper.SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				if cacheHandle.Cache != nil {
					if err := cacheHandle.Cache.CollectGarbage(); err != nil {
						return fmt.Errorf("catalog cache: %w", err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d orphaned books\n", deleted)
				return nil
			})
		},
	}
}

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the local search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				searches := do.MustInvoke[*service.SearchService](i)

				count, err := searches.Reindex(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d books\n", count)
				return nil
			})
		},
	}
}
