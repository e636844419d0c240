package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/relayops/relay/internal/adapter/httprt"
	"github.com/relayops/relay/internal/adapter/mcprt"
	relaynats "github.com/relayops/relay/internal/adapter/nats"
	"github.com/relayops/relay/internal/adapter/natsrt"
	"github.com/relayops/relay/internal/adapter/shellrt"
	"github.com/relayops/relay/internal/config"
	"github.com/relayops/relay/internal/port/provider"
)

// buildProviders constructs and registers one adapter per configured provider.
func buildProviders(reg *provider.Registry, providers []config.ProviderConfig, queue *relaynats.Queue, log *slog.Logger) error {
	for _, pc := range providers {
		rt, err := buildRuntime(pc, queue, log)
		if err != nil {
			return fmt.Errorf("provider %s: %w", pc.Name, err)
		}

		desc := provider.Descriptor{
			Capabilities:   pc.Capabilities,
			MaxConcurrent:  pc.MaxConcurrent,
			CostPer1K:      pc.CostPer1K,
			TypicalLatency: pc.TypicalLatency,
			DefaultModel:   pc.DefaultModel,
		}
		if err := reg.Register(pc.Name, rt, desc); err != nil {
			return err
		}
		log.Info("provider registered", "name", pc.Name, "kind", pc.Kind)
	}
	return nil
}

func buildRuntime(pc config.ProviderConfig, queue *relaynats.Queue, log *slog.Logger) (provider.Runtime, error) {
	switch pc.Kind {
	case "shell":
		return shellrt.New(shellrt.Options{
			Name:    pc.Name,
			WorkDir: pc.WorkDir,
			Env:     pc.Env,
		}, log), nil

	case "http":
		if pc.URL == "" {
			return nil, fmt.Errorf("http provider requires url")
		}
		return httprt.New(httprt.Options{
			Name:    pc.Name,
			BaseURL: pc.URL,
			Token:   pc.Token,
			Timeout: 30 * time.Second,
		}), nil

	case "nats":
		if queue == nil {
			return nil, fmt.Errorf("nats provider requires nats.url to be configured")
		}
		return natsrt.New(pc.Name, queue, log), nil

	case "mcp":
		opts := mcprt.Options{
			Name:     pc.Name,
			Command:  pc.Command,
			Args:     pc.Args,
			Env:      pc.Env,
			URL:      pc.URL,
			ExecTool: pc.ExecTool,
		}
		switch {
		case pc.Command != "":
			opts.Transport = mcprt.TransportStdio
		case pc.URL != "":
			opts.Transport = mcprt.TransportStreamableHTTP
		default:
			return nil, fmt.Errorf("mcp provider requires command or url")
		}
		return mcprt.New(opts, log), nil

	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}
