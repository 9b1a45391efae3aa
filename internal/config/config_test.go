package config

import (
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.PerPage != 3000 {
		t.Fatalf("per_page=%d want 3000", cfg.Source.PerPage)
	}
	if cfg.Source.Timeout != 60*time.Second {
		t.Fatalf("timeout=%v want 60s", cfg.Source.Timeout)
	}
	if cfg.Source.RetryCount != 4 {
		t.Fatalf("retry_count=%d want 4", cfg.Source.RetryCount)
	}
	if !cfg.Source.InsecureSkipVerify {
		t.Fatalf("insecure_skip_verify should default on")
	}
	if cfg.Run.PollInterval != 2*time.Second {
		t.Fatalf("poll_interval=%v want 2s", cfg.Run.PollInterval)
	}

	fert, ok := cfg.Pipelines["fertilizer"]
	if !ok {
		t.Fatalf("missing fertilizer pipeline")
	}
	if fert.GradeSex || !fert.RolloverGuard {
		t.Fatalf("fertilizer flags wrong: %+v", fert)
	}
	if len(fert.Commodities) != 1 || fert.Commodities[0] != 217 {
		t.Fatalf("fertilizer commodities=%v", fert.Commodities)
	}

	live, ok := cfg.Pipelines["livestock"]
	if !ok {
		t.Fatalf("missing livestock pipeline")
	}
	if !live.GradeSex || live.RolloverGuard {
		t.Fatalf("livestock flags wrong: %+v", live)
	}
	if len(live.Commodities) != 5 {
		t.Fatalf("livestock commodities=%v", live.Commodities)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load("does-not-exist.yaml", false); err == nil {
		t.Fatalf("expected error")
	}
}
