package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash first", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			if cfg.EmbeddingHost != tt.want {
				t.Errorf("EmbeddingHost = %q, want %q", cfg.EmbeddingHost, tt.want)
			}
			if cfg.SummarizerHost != tt.want {
				t.Errorf("SummarizerHost = %q, want %q", cfg.SummarizerHost, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, true},
		{"missing summarizer model", func(c *Config) { c.SummarizerModel = "" }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds on later attempt", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 3, time.Millisecond)
		if err != nil {
			t.Errorf("RetryWithBackoff() error = %v, want nil", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		wantErr := errors.New("still down")
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return wantErr
		}, 2, time.Millisecond)
		if !errors.Is(err, wantErr) {
			t.Errorf("RetryWithBackoff() error = %v, want %v", err, wantErr)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
		if !errors.Is(err, ErrInvalidMaxAttempts) {
			t.Errorf("RetryWithBackoff() error = %v, want ErrInvalidMaxAttempts", err)
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, func() error { return errors.New("x") }, 3, time.Millisecond)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RetryWithBackoff() error = %v, want context.Canceled", err)
		}
	})
}
