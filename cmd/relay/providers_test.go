package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/relayops/relay/internal/config"
	"github.com/relayops/relay/internal/port/provider"
)

func TestBuildProvidersRegistersShellRuntime(t *testing.T) {
	reg := provider.NewRegistry("local")
	providers := []config.ProviderConfig{{
		Name:           "local",
		Kind:           "shell",
		WorkDir:        t.TempDir(),
		Capabilities:   []string{"code"},
		MaxConcurrent:  2,
		CostPer1K:      0.01,
		TypicalLatency: 200 * time.Millisecond,
	}}

	if err := buildProviders(reg, providers, nil, slog.Default()); err != nil {
		t.Fatal(err)
	}

	rt, err := reg.Resolve("local")
	if err != nil {
		t.Fatal(err)
	}
	if rt.Name() != "local" {
		t.Fatalf("expected runtime named local, got %s", rt.Name())
	}

	desc, err := reg.Descriptor("local")
	if err != nil {
		t.Fatal(err)
	}
	if desc.MaxConcurrent != 2 || desc.CostPer1K != 0.01 {
		t.Fatalf("descriptor not carried through: %+v", desc)
	}
}

func TestBuildRuntimeRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		pc   config.ProviderConfig
	}{
		{"http without url", config.ProviderConfig{Name: "h", Kind: "http"}},
		{"nats without queue", config.ProviderConfig{Name: "n", Kind: "nats"}},
		{"mcp without command or url", config.ProviderConfig{Name: "m", Kind: "mcp"}},
		{"unknown kind", config.ProviderConfig{Name: "x", Kind: "warp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildRuntime(tt.pc, nil, slog.Default()); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
