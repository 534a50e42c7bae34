package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/match"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "matchd",
		Short:        "Matching and ranking service for candidate recommendations",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env is fine.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		newRankCmd(&configPath),
	)
	return root
}

func setup(path string) (*Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging)
	return cfg, nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := setup(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	rk, err := newRanker(cfg, s, logging.Logger())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg.Server, rk, s),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).
			Bool("collaborative_filtering", cfg.Ranking.CollaborativeFiltering).
			Bool("embedding", cfg.Embedding.Enabled).
			Msg("starting matchd")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRankCmd(configPath *string) *cobra.Command {
	var (
		userID   string
		count    int
		mode     string
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank candidates for one user and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			m := match.Mode("")
			if mode != "" {
				if m, err = match.ParseMode(mode); err != nil {
					return err
				}
			}
			if count < 0 {
				return errors.New("count must be a positive integer")
			}

			ctx := cmd.Context()
			s, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer s.Close()

			rk, err := newRanker(cfg, s, logging.Logger())
			if err != nil {
				return err
			}
			res, err := rk.rank(ctx, match.Request{UserID: match.ID(userID), Count: count, Mode: m})
			if err != nil {
				return err
			}

			var out any = idsResponse{Status: statusSuccess, UserIDs: res.IDs()}
			if detailed {
				found, err := s.ProfilesByID(ctx, res.IDs())
				if err != nil {
					return err
				}
				profiles := make([]*match.UserProfile, len(res.Candidates))
				for i, c := range res.Candidates {
					profiles[i] = found[c.ID]
				}
				out = buildDetailedResponse(res, profiles)
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "requester user ID")
	cmd.Flags().IntVar(&count, "count", 0, "number of candidates (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "fused or preference_only (default from config)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include score breakdown and profiles")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
