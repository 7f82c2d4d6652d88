package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-authflow"
)

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

// NewRootCmd creates the root command for the authctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "authctl - credential and token tooling",
		Long: `authctl hashes passwords, issues and verifies tokens, runs the
login and current user flows against the configured store, migrates the
users table and serves the token endpoint over HTTP.

Settings are read from --config, then AUTH_ prefixed environment
variables (a .env file is loaded first), then flags.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	addSettingFlags(pf)

	cmd.AddCommand(newHashCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))
	cmd.AddCommand(newUserAddCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// addSettingFlags registers one flag per auth setting. Only flags the user
// sets override the file and the environment.
func addSettingFlags(pf *pflag.FlagSet) {
	d := auth.DefaultConfig()
	pf.String("secret-key", "", "token signing secret")
	pf.String("token-algorithm", d.TokenAlgorithm, "HS256, HS384 or HS512")
	pf.Int("access-token-expire-minutes", d.AccessTokenExpireMinutes, "access token lifetime in minutes")
	pf.Int("refresh-token-expire-days", d.RefreshTokenExpireDays, "refresh token lifetime in days")
	pf.String("credential-type", string(d.CredentialType), "email, username or both")
	pf.StringSlice("user-validators", d.UserValidators, "ordered validator references")
	pf.String("database-adapter", d.DatabaseAdapter, "bun, postgres or memory")
	pf.String("database-url", "", "database connection string")
	pf.String("password-service", d.PasswordService, "bcrypt or argon2id")
	pf.Int("bcrypt-cost", d.BcryptCost, "bcrypt cost")
	pf.Int("hash-workers", d.HashWorkers, "concurrent password hashing workers")
}

// loadConfig reads the dotenv file, then layers config file, environment
// and flags
func (o *rootOptions) loadConfig(cmd *cobra.Command) (auth.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return auth.Config{}, err
		}
	}

	cfg, err := auth.LoadConfig(o.configFile, cmd.Flags())
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}
