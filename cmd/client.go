package cmd

import (
	"context"
	"os"

	"github.com/ailice/ailice/config"
	"github.com/ailice/ailice/internal/cli"
	"github.com/ailice/ailice/internal/client"
	"github.com/spf13/cobra"
)

var verifyWhoAmI bool

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: withApp(func(ctx context.Context, app *cli.App) error {
		return app.Register(ctx)
	}),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	RunE: withApp(func(ctx context.Context, app *cli.App) error {
		return app.Login(ctx)
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: withApp(func(ctx context.Context, app *cli.App) error {
		return app.Logout(ctx)
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE: withApp(func(ctx context.Context, app *cli.App) error {
		return app.WhoAmI(ctx, verifyWhoAmI)
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat surface",
	RunE: withApp(func(ctx context.Context, app *cli.App) error {
		return app.Chat(ctx)
	}),
}

func init() {
	whoamiCmd.Flags().BoolVar(&verifyWhoAmI, "verify", false, "ask the server to verify the stored token")
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, chatCmd)
}

// withApp opens the client state, restores the session and hands an App to fn.
func withApp(fn func(ctx context.Context, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.LoadConfig()

		store, err := client.OpenSQLiteStore(ctx, cfg.Client.StateFile)
		if err != nil {
			return err
		}
		defer store.Close()

		session := client.NewSession(store)
		if err := session.Bootstrap(ctx); err != nil {
			return err
		}

		app := cli.NewApp(client.NewAPI(cfg.Client.APIURL, nil), session, os.Stdin, cmd.OutOrStdout())
		return fn(ctx, app)
	}
}
