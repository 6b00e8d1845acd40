// Package main provides the roleauth binary: the HTTP service plus the
// admin commands for tables, tokens and lockouts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/goliatone/go-role-auth/config"
	"github.com/goliatone/go-role-auth/repository"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "roleauth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Role based authentication service for the school platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(flags),
		migrateCmd(flags),
		tokenCmd(flags),
		lockoutCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			deps, err := newDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()
			logger.Info("tables migrated", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func tokenCmd(flags *globalFlags) *cobra.Command {
	var role, subject, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a token signed with a role secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := auth.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			deps, err := newDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			token, exp, err := auth.MintRoleToken(deps.authenticator.Codec(), deps.authenticator.Table(), r, auth.TokenRequest{
				SubjectID:   subject,
				DisplayName: name,
				TTL:         ttl,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			logger.Info("token minted", "role", r, "subject", subject, "expires", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role of the token (e.g. Directivo)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject id (DNI or numeric id)")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to the role TTL")

	return cmd
}

func lockoutCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lockout",
		Short: "Manage role wide login lockouts",
	}

	var setRole string
	var until int64
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Block logins for a role, permanently or until an epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := auth.ParseRole(setRole)
			if !ok {
				return fmt.Errorf("unknown role %q", setRole)
			}
			return withDependencies(cmd.Context(), flags, func(deps *dependencies) error {
				record := auth.LockoutRecord{Role: r, TotalBlock: true, UnblockAtUnix: until}
				err := deps.updateLockout(cmd.Context(), r, func(ctx context.Context, repo *repository.LockoutRepository) error {
					return repo.SetLockout(ctx, record)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s locked (%s)\n", r, deps.authenticator.Gate().Check(cmd.Context(), r).RemainingText())
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&setRole, "role", "", "Role to lock")
	setCmd.Flags().Int64Var(&until, "until", 0, "Unix time when the lock ends, 0 for permanent")

	var clearRole string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the lockout of a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := auth.ParseRole(clearRole)
			if !ok {
				return fmt.Errorf("unknown role %q", clearRole)
			}
			return withDependencies(cmd.Context(), flags, func(deps *dependencies) error {
				err := deps.updateLockout(cmd.Context(), r, func(ctx context.Context, repo *repository.LockoutRepository) error {
					return repo.ClearLockout(ctx, r)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s unlocked\n", r)
				return nil
			})
		},
	}
	clearCmd.Flags().StringVar(&clearRole, "role", "", "Role to unlock")

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func withDependencies(ctx context.Context, flags *globalFlags, fn func(*dependencies) error) error {
	cfg, logger, err := setup(flags)
	if err != nil {
		return err
	}
	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(deps)
}

func setup(flags *globalFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
