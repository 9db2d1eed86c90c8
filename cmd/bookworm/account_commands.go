package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/ablbsk/bookworm-api/internal/auth"
	"github.com/ablbsk/bookworm-api/internal/service"
)

const stampLayout = "2006-01-02 15:04"

func newAccountCommand(ctx *commandContext) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Provision and inspect accounts",
	}

	accountCmd.AddCommand(newAccountCreateCommand(ctx))
	accountCmd.AddCommand(newAccountShowCommand(ctx))

	return accountCmd
}

func newAccountCreateCommand(ctx *commandContext) *cobra.Command {
	var noToken bool

	cmd := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Provision an account's collection and mint an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				accounts := do.MustInvoke[*service.AccountService](i)

				coll, created, err := accounts.Provision(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "Provisioned collection for %s\n", coll.AccountID)
				} else {
					fmt.Fprintf(out, "Collection for %s already exists (%d books)\n", coll.AccountID, len(coll.Entries))
				}
				if noToken {
					return nil
				}
				return printToken(cmd, i, coll.AccountID)
			})
		},
	}

	cmd.Flags().BoolVar(&noToken, "no-token", false, "Skip minting an access token")
	return cmd
}

func newAccountShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show an account's collection summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				accounts := do.MustInvoke[*service.AccountService](i)

				summary, err := accounts.Summary(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Account", summary.AccountID},
					{"Books", strconv.Itoa(summary.CollectionSize)},
					{"Liked", strconv.Itoa(summary.LikedCount)},
					{"Pages read", strconv.Itoa(summary.PagesRead)},
					{"Since", summary.Since.Local().Format(stampLayout)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "mint <account-id>",
		Short: "Mint an access token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(func(i do.Injector) error {
				return printToken(cmd, i, args[0])
			})
		},
	})

	return tokenCmd
}

func printToken(cmd *cobra.Command, i do.Injector, accountID string) error {
	tokens := do.MustInvoke[*auth.TokenService](i)

	token, expires, err := tokens.GenerateAccessToken(accountID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Access token (expires %s, in %s):\n%s\n",
		expires.Local().Format(stampLayout),
		time.Until(expires).Round(time.Hour),
		token,
	)
	return nil
}
