package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/chain"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/config"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/contextstore"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/llamacpp"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/ollama"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/prompts"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/turnlog"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/timectx"
)

func providePromptStore(cfg *config.Config, logger *slog.Logger) (*prompts.Store, error) {
	return prompts.NewStore(cfg.Prompts.Dir, cfg.Prompts.Strict, cfg.Prompts.AutoReload, logger)
}

func provideLlamaClient(cfg *config.Config) *llamacpp.Client {
	return llamacpp.NewClient(cfg.Stage1.URL, cfg.Stage1.ConnectTimeout, cfg.Stage1.ReadTimeout)
}

func provideOllamaClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(cfg.Stage2.URL, cfg.Stage2.Model, cfg.Stage2.ConnectTimeout, cfg.Stage2.ReadTimeout)
}

func provideChainConfig(cfg *config.Config) chain.Config {
	return chain.Config{
		Stage1:  cfg.Stage1,
		Stage2:  cfg.Stage2,
		Profile: cfg.Profile,
		TimeCtx: timeContextConfig(cfg),
	}
}

func provideContextConfig(cfg *config.Config) contextmem.Config {
	return contextmem.Config{
		Capacity: cfg.Context.Capacity,
		Window:   cfg.Context.Window,
		TimeCtx:  timeContextConfig(cfg),
	}
}

func provideChainMemory(svc contextmem.Service) chain.Memory {
	return svc
}

func timeContextConfig(cfg *config.Config) timectx.Config {
	return timectx.Config{
		Enabled:    cfg.TimeCtx.Enabled,
		TimeZone:   cfg.TimeCtx.TimeZone,
		Location:   cfg.TimeCtx.Location,
		IncludeISO: cfg.TimeCtx.IncludeISO,
	}
}

func provideContextStore(cfg *config.Config, logger *slog.Logger) contextmem.Store {
	if cfg.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg.Valkey.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return contextstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return contextstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("context valkey store enabled", "addr", cfg.Valkey.Addr)
			return contextstore.NewValkeyStore(client, "chainproxy")
		}
	}
	return contextstore.NewMemoryStore()
}

func provideTurnRecorder(cfg *config.Config, logger *slog.Logger) contextmem.Recorder {
	fallback := turnlog.NewMemoryLog()
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("turn log postgres dsn not set, using memory log")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory log", "error", err)
		return fallback
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory log", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory log", "error", err)
		pool.Close()
		return fallback
	}
	log := turnlog.NewPostgresLog(pool)
	if err := log.EnsureSchema(ctx); err != nil {
		logger.Error("turn log schema setup failed, using memory log", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("turn log postgres enabled")
	return log
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
