package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-authflow"
	"github.com/goliatone/go-authflow/postgres"
)

func newHashCmd(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password with the configured password service",
		Long:  `Hash a password. The password is read from --password or from the first line of stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			plaintext, err := readSecret(cmd, password)
			if err != nil {
				return err
			}

			hashed, err := a.components.Hasher.Hash(cmd.Context(), plaintext)
			if err != nil {
				return err
			}

			cmd.Println(hashed)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password to hash")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(opts), newTokenVerifyCmd(opts))
	return cmd
}

func newTokenIssueCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		kind    string
		ttl     time.Duration
		extra   map[string]string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}

			a, err := opts.newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			claims := auth.Claims{Subject: subject, Extra: map[string]any{}}
			for k, v := range extra {
				claims.Extra[k] = v
			}

			token, err := a.components.Tokens.Issue(auth.TokenKind(kind), claims, ttl)
			if err != nil {
				return err
			}

			cmd.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, a user public id")
	cmd.Flags().StringVar(&kind, "kind", string(auth.TokenKindAccess), "access or refresh")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime, 0 uses the configured default")
	cmd.Flags().StringToStringVar(&extra, "claim", nil, "extra claims, key=value")
	return cmd
}

func newTokenVerifyCmd(opts *rootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			claims, err := a.components.Tokens.Verify(args[0], auth.TokenKind(kind))
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"sub":        claims.Subject,
				"token_type": claims.Kind,
				"exp":        claims.ExpiresAt,
				"iat":        claims.IssuedAt,
				"jti":        claims.ID,
				"extra":      claims.Extra,
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(auth.TokenKindAccess), "expected kind: access or refresh")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login CREDENTIAL",
		Short: "Run the login flow and print a token pair",
		Long: `Run the login flow for CREDENTIAL (an email or username, per
credential_type). The password is read from --password or stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			plaintext, err := readSecret(cmd, password)
			if err != nil {
				return err
			}

			user, err := a.components.Auth.Login(cmd.Context(), args[0], plaintext)
			if err != nil {
				return err
			}

			pair, err := a.components.Auth.IssueTokens(cmd.Context(), user)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), pair)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami TOKEN",
		Short: "Resolve the user behind an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.components.Auth.ResolveCurrentUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), user)
		},
	}
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var (
		email, username, password string
		active, verified          bool
	)

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Insert a user fixture into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" && username == "" {
				return errors.New("one of --email or --username is required")
			}

			a, err := opts.newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			plaintext, err := readSecret(cmd, password)
			if err != nil {
				return err
			}

			hashed, err := a.components.Hasher.Hash(cmd.Context(), plaintext)
			if err != nil {
				return err
			}

			w, err := a.users()
			if err != nil {
				return err
			}

			user, err := w.Insert(cmd.Context(), &auth.User{
				Email:           auth.StringPtr(email),
				Username:        auth.StringPtr(username),
				PasswordHash:    hashed,
				IsActive:        active,
				IsEmailVerified: verified,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), user)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password, read from stdin when empty")
	cmd.Flags().BoolVar(&active, "active", true, "mark the user active")
	cmd.Flags().BoolVar(&verified, "verified", false, "mark the email verified")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or migrate the users table",
		Long: `Apply the embedded goose migrations (postgres adapter) or create
the users table (bun adapter).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			switch {
			case a.pgPool != nil:
				cmd.Println("Running migrations...")
				if err := postgres.Migrate(cmd.Context(), a.pgPool); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
			case a.bunDB != nil:
				cmd.Println("Creating schema...")
				if err := auth.NewBunUserStore(a.bunDB, nil).CreateSchema(cmd.Context()); err != nil {
					return err
				}
			default:
				return fmt.Errorf("database_adapter %q has no schema", a.cfg.DatabaseAdapter)
			}

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func readSecret(cmd *cobra.Command, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required: pass --password or pipe it on stdin")
	}
	return line, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
