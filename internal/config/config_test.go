package config

import (
	"strings"
	"testing"
)

func TestDefaultMatchesRenderBaseCapacities(t *testing.T) {
	cfg := Default()
	if cfg.Caches.ScrToImg != 4 || cfg.Caches.Mesh != 4 || cfg.Caches.MTF != 8 || cfg.Caches.Tile != 4 {
		t.Errorf("Default().Caches = %+v, want {4,4,8,4}", cfg.Caches)
	}
	if cfg.Workers != 4 {
		t.Errorf("Default().Workers = %d, want 4", cfg.Workers)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	yamlText := "workers: 8\ncaches:\n  tile: 16\n"
	cfg, err := Load(strings.NewReader(yamlText))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Caches.Tile != 16 {
		t.Errorf("Caches.Tile = %d, want 16", cfg.Caches.Tile)
	}
	if cfg.Caches.ScrToImg != 4 {
		t.Errorf("Caches.ScrToImg = %d, want default 4, got overridden unexpectedly", cfg.Caches.ScrToImg)
	}
}

func TestLoadEmptyReturnsDefault(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(empty) = %+v, want Default()", cfg)
	}
}
