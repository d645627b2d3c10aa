package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watchlist-kata/moviedb/api/server"
	"github.com/watchlist-kata/moviedb/internal/config"
	"github.com/watchlist-kata/moviedb/pkg/countries"
	"github.com/watchlist-kata/moviedb/pkg/logger"
	"github.com/watchlist-kata/moviedb/pkg/utils"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "moviedb",
		Short:         "Каталог фильмов и актеров",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), countriesCmd())
	return root
}

// setup загружает конфигурацию и собирает логгер
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	customLogger, err := logger.NewLogger(logger.Options{
		ServiceName:  cfg.ServiceName,
		Level:        logger.ParseLevel(cfg.LogLevel),
		BufferSize:   cfg.LogBufferSize,
		LogDir:       cfg.LogDir,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, customLogger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP и gRPC серверы",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, customLogger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Close(customLogger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.RunServer(ctx, cfg, customLogger)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить схему базы данных",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, customLogger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Close(customLogger)

			db, err := utils.ConnectToDatabase(cfg, customLogger)
			if err != nil {
				return err
			}
			defer func() { _ = utils.Close(db) }()

			if err := utils.Migrate(db); err != nil {
				return err
			}
			customLogger.Info("database migrated", slog.String("database", cfg.DBName))
			return nil
		},
	}
}

func countriesCmd() *cobra.Command {
	var codes bool
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "Вывести список допустимых стран",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range countries.List() {
				line := c.Name
				if codes {
					line = c.Alpha2 + "\t" + c.Alpha3 + "\t" + c.Name
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&codes, "codes", false, "выводить коды ISO 3166-1 alpha-2 и alpha-3")
	return cmd
}
