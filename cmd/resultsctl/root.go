package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/logger"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "resultsctl",
		Short:         "Operate the school results service",
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file with DB_* and REDIS_* settings")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringP("output", "o", "json", "Output format (json, table)")

	root.AddCommand(gradeCmd(), distributionCmd(), lockCmd())
	return root
}

// loadConfig shares defaults with the server and lets flags override the log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		v.Set("LOG_LEVEL", level)
	}
	v.Set("LOG_FORMAT", "console")
	return config.FromViper(v), nil
}

// runtime holds the collaborators a command needs; close releases them.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	cache  *service.CacheService
	close  func()
}

func newRuntime(cmd *cobra.Command, withCache bool) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	closers := []func() error{db.Close}
	var cacheRepo service.CacheRepository
	if withCache {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		}
		if client != nil {
			repo := repository.NewCacheRepository(client)
			cacheRepo = repo
			closers = append(closers, repo.Close)
		}
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logr,
		db:     db,
		cache:  service.NewCacheService(cacheRepo, nil, cfg.Results.DistributionCacheTTL, logr, withCache && cfg.Results.CacheEnabled),
	}
	rt.close = func() {
		for _, fn := range closers {
			_ = fn()
		}
		_ = logr.Sync()
	}
	return rt, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return strings.ToLower(format)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w)
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	table.Header(headerCells...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
