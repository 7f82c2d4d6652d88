package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	auth "github.com/goliatone/go-authflow"
	"github.com/goliatone/go-authflow/middleware/bearer"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the token endpoint and a current user endpoint",
		Long: `Serve POST <oauth2_scheme_token_url> (OAuth2 password grant),
POST <oauth2_scheme_token_url>/refresh and GET /me over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// newServer builds the fiber app for the auth endpoints
func newServer(a auth.Authenticator, cfg auth.Config) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	bearer.Routes(app, a, cfg.OAuth2SchemeTokenURL)

	app.Get("/me", bearer.New(bearer.Config{Authenticator: a}), func(c *fiber.Ctx) error {
		user, _ := bearer.UserFrom(c)
		return c.JSON(user)
	})

	return app
}

func serve(ctx context.Context, a *app, addr string) error {
	server := newServer(a.components.Auth, a.cfg)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("listening", zap.String("addr", addr), zap.String("token_url", a.cfg.OAuth2SchemeTokenURL))
		return server.Listen(addr)
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down")
		return server.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
