package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Kyushi/pemoi/internal/app"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and remove accounts",
	}

	userCmd.AddCommand(userListCmd())
	userCmd.AddCommand(userShowCmd())
	userCmd.AddCommand(userDeleteCmd())

	return userCmd
}

func userListCmd() *cobra.Command {
	var limit, offset uint64

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			users, err := a.UserService.List(cmd.Context(), repository.Page{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			return writeUsers(cmd.OutOrStdout(), users)
		},
	}

	listCmd.Flags().Uint64Var(&limit, "limit", 50, "maximum number of accounts")
	listCmd.Flags().Uint64Var(&offset, "offset", 0, "accounts to skip")
	return listCmd
}

func writeUsers(out io.Writer, users []*model.User) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tDELETED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.IsDeleted())
	}
	return w.Flush()
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|username>",
		Short: "Print an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var user *model.User
			if id, parseErr := strconv.ParseInt(args[0], 10, 64); parseErr == nil {
				user, err = a.UserService.ByID(cmd.Context(), id)
			} else {
				user, err = a.UserService.ByUsername(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*model.User
				Deleted bool `json:"deleted"`
			}{user, user.IsDeleted()})
		},
	}
}

func userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account, or finish an interrupted deletion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if id == model.AdminID {
				return fmt.Errorf("the admin account cannot be deleted")
			}

			a, err := app.New(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			user, err := a.UserService.ByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			if !user.IsDeleted() {
				err = a.UserService.DeleteAccount(cmd.Context(), model.ViewerFor(user), id)
				if err != nil {
					return err
				}
			}

			// Leftovers of an earlier run whose purge failed
			err = a.UserService.PurgeDeletedArea(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %d deleted\n", id)
			return nil
		},
	}
}
