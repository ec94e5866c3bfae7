package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inspeksi/audit-dashboard/internal/auth"
	"github.com/inspeksi/audit-dashboard/internal/remote"
)

func newLoginCommand(opts *options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the API token",
		Long: `Sign in with a username and password. The password is read from the
first line of stdin when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			store, err := opts.store()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd.ErrOrStderr())
			service := auth.NewService(opts.client(cmd), nil, logger)
			claims, err := service.Authenticate(cmd.Context(), username, password, store)
			if err != nil {
				var authErr *remote.AuthError
				if errors.As(err, &authErr) {
					return errors.New(authErr.Message)
				}
				return explain(err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"username":    claims.Username,
					"credentials": store.Path(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", claims.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prefer stdin)")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the API session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}
			service := auth.NewService(opts.client(cmd), nil, opts.logger(cmd.ErrOrStderr()))
			if err := service.Logout(cmd.Context(), store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
