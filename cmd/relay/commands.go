package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/app"
	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	applog "github.com/vovakirdan/wirechat-relay/internal/log"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "relay",
		Short:         "Real-time one-to-one messaging relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (written with defaults if missing)")

	root.AddCommand(newServeCmd(opts), newUserCmd(opts), newTokenCmd(opts))
	return root
}

// loadConfig resolves configuration and builds the logger it asks for.
func loadConfig(opts *rootOptions, overrides config.Config) (*config.Config, *zerolog.Logger, error) {
	bootstrap := applog.New(applog.Options{Level: "info"})
	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := applog.New(applog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return &cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting relay")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("relay stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&overrides.LogFormat, "log-format", "", "log encoding (console, json)")
	cmd.Flags().StringVar(&overrides.StoreDriver, "store", "", "store driver (sqlite, postgres)")
	return cmd
}

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var name, avatar, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print its ID",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := auth.NewService(st, app.JWTConfig(cfg)).CreateUser(ctx, name, avatar, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	create.Flags().StringVar(&password, "password", "", "password")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.GetUserByID(ctx, userID)
			if err != nil {
				return fmt.Errorf("load user %d: %w", userID, err)
			}
			token, err := auth.NewService(st, app.JWTConfig(cfg)).IssueToken(user)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user ID")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

