// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package main

import (
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/bootstrap"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/chain"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/config"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/interface/http"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/logger"
)

// Injectors from wire.go:

func initializeApp() (*bootstrap.App, error) {
	configConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	slogLogger := logger.New()
	chainConfig := provideChainConfig(configConfig)
	client := provideLlamaClient(configConfig)
	ollamaClient := provideOllamaClient(configConfig)
	contextmemConfig := provideContextConfig(configConfig)
	store, err := providePromptStore(configConfig, slogLogger)
	if err != nil {
		return nil, err
	}
	contextmemStore := provideContextStore(configConfig, slogLogger)
	recorder := provideTurnRecorder(configConfig, slogLogger)
	service := contextmem.NewService(contextmemConfig, ollamaClient, store, contextmemStore, recorder, slogLogger)
	memory := provideChainMemory(service)
	chainService := chain.NewService(chainConfig, client, ollamaClient, memory, store, slogLogger)
	handler := http.NewHandler(chainService, configConfig, slogLogger)
	server := http.NewRouter(configConfig, handler)
	app := bootstrap.NewApp(configConfig, slogLogger, server, store)
	return app, nil
}
