package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/set-night/mindchat/internal/bootstrap"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/terminal"
)

const historyFilename = ".mindchat_history"

func main() {
	var opts struct {
		SignUp  bool
		Verbose bool
	}
	rootCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with MindChat from the terminal",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			bootstrap.SetupLogging(level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			factory, closeFactory, err := bootstrap.NewFactory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFactory()

			client, release := factory.NewClient()
			defer release()
			defer client.Close()

			console, err := terminal.NewConsole(historyFile())
			if err != nil {
				return errors.Wrap(err, "opening terminal")
			}
			defer console.Close()

			session, err := terminal.NewSession(client, console, terminal.NewOutput(os.Stdout), opts.SignUp)
			if err != nil {
				return err
			}
			return session.Run(ctx)
		},
	}
	rootCmd.Flags().BoolVar(&opts.SignUp, "signup", false, "create a new account before chatting")
	rootCmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output to stderr")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFilename)
}
