package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medagent/pkg/agent"
	"medagent/pkg/api"
	"medagent/pkg/channels"
	_ "medagent/pkg/channels/autoload" // register channels
	"medagent/pkg/config"
	"medagent/pkg/fhir"
	"medagent/pkg/gateway"
	"medagent/pkg/llm"
	_ "medagent/pkg/llm/autoload" // register LLM providers
	"medagent/pkg/monitor"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	monitor.Startup()

	log.Println("==========================================")

	// --- 0. Configuration ---
	cfg, sysCfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	monitor.SetupSlog(sysCfg.LogLevel)

	// --- 1. LLM client ---
	// config.json takes priority; otherwise environment credentials,
	// Nebius first and OpenAI as fallback. Without either the agent
	// still starts and answers tasks with a configuration error.
	var client llm.Client
	if cfg.LLM != nil {
		client, err = llm.NewFromConfig(cfg.LLM, sysCfg)
		if err != nil {
			log.Fatalf("❌ Failed to init LLM client: %v\n", err)
		}
	} else {
		creds, err := llm.LoadCredentials()
		if err != nil {
			log.Fatalf("❌ Failed to read credentials: %v\n", err)
		}
		client, err = llm.NewFromEnv(creds, sysCfg)
		if err != nil {
			if !errors.Is(err, llm.ErrNoCredentials) {
				log.Fatalf("❌ Failed to init LLM client: %v\n", err)
			}
			slog.Warn("⚠️ No LLM credentials found, tasks will be answered with a configuration error")
		}
	}

	if client != nil && sysCfg.DebugChunks {
		client.SetDebug(true)
	}

	// --- 2. Task engine ---
	fetcher := fhir.NewClient(time.Duration(sysCfg.FHIRTimeoutMs) * time.Millisecond)
	engine := agent.NewEngine(client, fetcher, cfg, sysCfg)

	// --- 3. Gateway (builder pattern) ---
	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithEngine(engine).
		WithChannelLoader(func(handler api.TaskHandler) ([]api.Channel, error) {
			chCtx := api.ChannelContext{
				Handler:          handler,
				AgentName:        cfg.AgentName,
				AgentDescription: cfg.AgentDescription,
			}
			return channels.LoadFromConfig(cfg.Channels, chCtx, sysCfg), nil
		}).
		Build()
	if err != nil {
		log.Fatalf("❌ Failed to build gateway: %v\n", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("\nReceived shutdown signal. Stopping services...")

	gw.StopAll()
	log.Println("Bye!")
}
