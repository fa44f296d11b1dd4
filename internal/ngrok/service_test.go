package ngrok

import (
	"context"
	"errors"
	"testing"

	"cadenza/internal/config"
)

func TestNewServiceDisabled(t *testing.T) {
	svc, err := NewService(&config.NgrokConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Expected no error when disabled, got %v", err)
	}
	if svc != nil {
		t.Fatal("Expected nil service when disabled")
	}

	// A disabled tunnel is safe to use.
	if err := svc.StartTunnel(context.Background(), "127.0.0.1:5000"); err != nil {
		t.Errorf("Expected no-op start, got %v", err)
	}
	if svc.PublicURL() != "" {
		t.Error("Expected empty public URL")
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Expected no-op stop, got %v", err)
	}
}

func TestNewServiceRequiresToken(t *testing.T) {
	_, err := NewService(&config.NgrokConfig{Enabled: true}, nil)
	if !errors.Is(err, ErrNoAuthToken) {
		t.Errorf("Expected ErrNoAuthToken, got %v", err)
	}
}
