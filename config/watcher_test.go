package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	loader := NewLoader()

	t.Run("valid config path", func(t *testing.T) {
		// Create a temp config file
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.ConfigPath() != configPath {
			t.Errorf("expected config path %s, got %s", configPath, watcher.ConfigPath())
		}
	})

	t.Run("empty config path", func(t *testing.T) {
		_, err := NewWatcher("", loader)
		if err == nil {
			t.Fatal("expected error for empty config path")
		}
	})

	t.Run("with debounce option", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader, WithDebounce(100*time.Millisecond))
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.debounce != 100*time.Millisecond {
			t.Errorf("expected debounce 100ms, got %v", watcher.debounce)
		}
	})
}

func TestWatcher_Watch(t *testing.T) {
	loader := NewLoader()

	t.Run("detects file changes", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		// Create initial config
		initialContent := `app:
  name: test-app
server:
  port: 8080
log:
  level: info
  format: json
`
		if err := os.WriteFile(configPath, []byte(initialContent), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var callbackCalled bool
		var callbackMu sync.Mutex
		var receivedConfig *Config

		watcher.OnChange(func(cfg *Config) {
			callbackMu.Lock()
			defer callbackMu.Unlock()
			callbackCalled = true
			receivedConfig = cfg
		})

		// Start watching in a goroutine
		watchErr := make(chan error, 1)
		go func() {
			watchErr <- watcher.Watch(ctx)
		}()

		// Wait a bit for watcher to start
		time.Sleep(100 * time.Millisecond)

		// Modify the config file
		updatedContent := `app:
  name: updated-app
server:
  port: 8080
log:
  level: debug
  format: json
`
		if err := os.WriteFile(configPath, []byte(updatedContent), 0644); err != nil {
			t.Fatalf("failed to update temp config: %v", err)
		}

		// Wait for callback to be called
		time.Sleep(600 * time.Millisecond)

		callbackMu.Lock()
		if !callbackCalled {
			t.Error("expected callback to be called after config change")
		}
		if receivedConfig != nil && receivedConfig.Log.Level != "debug" {
			t.Errorf("expected log level 'debug', got '%s'", receivedConfig.Log.Level)
		}
		callbackMu.Unlock()

		watcher.Stop()
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err = watcher.Watch(ctx)
		if err != context.DeadlineExceeded {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("rejects double start", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			_ = watcher.Watch(ctx)
		}()
		time.Sleep(100 * time.Millisecond)

		if !watcher.IsRunning() {
			t.Fatal("expected watcher to be running")
		}
		if err := watcher.Watch(ctx); err == nil {
			t.Error("expected error starting watcher twice")
		}
	})
}

func TestExtractHotReloadable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Saga.DefaultStepTimeout = 15 * time.Second

	hot := ExtractHotReloadable(cfg)
	if hot.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", hot.LogLevel)
	}
	if hot.SagaStepTimeout != 15*time.Second {
		t.Errorf("expected step timeout 15s, got %v", hot.SagaStepTimeout)
	}
}

func TestHotReloadableConfig_Changed(t *testing.T) {
	a := HotReloadableConfig{LogLevel: "info", LogFormat: "json", SagaStepTimeout: 30 * time.Second}
	b := a

	if a.Changed(b) {
		t.Error("expected no change for identical configs")
	}

	b.LogLevel = "debug"
	if !a.Changed(b) {
		t.Error("expected change when log level differs")
	}

	b = a
	b.SagaStepTimeout = 10 * time.Second
	if !a.Changed(b) {
		t.Error("expected change when step timeout differs")
	}
}
