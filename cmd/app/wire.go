//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/bootstrap"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/chain"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/config"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/llamacpp"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/ollama"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/prompts"
	httpiface "github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/interface/http"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		providePromptStore,
		provideLlamaClient,
		provideOllamaClient,
		provideContextStore,
		provideTurnRecorder,
		provideContextConfig,
		provideChainConfig,
		provideChainMemory,
		contextmem.NewService,
		chain.NewService,
		wire.Bind(new(chain.CompletionClient), new(*llamacpp.Client)),
		wire.Bind(new(chain.ChatClient), new(*ollama.Client)),
		wire.Bind(new(chain.PromptSource), new(*prompts.Store)),
		wire.Bind(new(contextmem.PromptSource), new(*prompts.Store)),
		wire.Bind(new(contextmem.Consolidator), new(*ollama.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
