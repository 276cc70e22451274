package completion

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"minichat/internal/config"
)

func newEchoService(delayMS int) *Service {
	return NewService(&config.Config{
		BasicConfig: config.BasicConfig{EchoDelayMS: delayMS},
		Providers: map[string]config.ProviderConfig{
			"openai": {BaseURL: "https://api.groq.com/openai/v1", Model: "llama3-8b-8192"},
		},
	})
}

func TestEchoDeterministicOutput(t *testing.T) {
	svc := newEchoService(20)

	start := time.Now()
	reply, err := svc.Generate(context.Background(), Request{
		Prompt:   "hello",
		ModelTag: "echo",
		Provider: "echo",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	want := `You said: "hello" (using model: echo)`
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("echo returned after %v, want at least the simulated delay", elapsed)
	}
}

func TestEchoEmbedsPromptAndTag(t *testing.T) {
	svc := newEchoService(1)
	prompts := []string{"a", "multi word prompt", `with "quotes"`}
	for _, p := range prompts {
		reply, err := svc.Generate(context.Background(), Request{Prompt: p, ModelTag: "echo", Provider: "echo"})
		if err != nil {
			t.Fatalf("Generate(%q): %v", p, err)
		}
		if !strings.Contains(reply, p) || !strings.Contains(reply, "echo") {
			t.Fatalf("reply %q missing prompt or tag", reply)
		}
	}
}

func TestMissingCredentialFallsBackToEcho(t *testing.T) {
	// openai is configured but has no api key, so the stub must answer.
	svc := newEchoService(1)
	reply, err := svc.Generate(context.Background(), Request{
		Prompt:   "ping",
		ModelTag: "llama3-8b-8192",
		Provider: "openai",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	want := fmt.Sprintf("You said: %q (using model: %s)", "ping", "llama3-8b-8192")
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestUnknownProviderFallsBackToEcho(t *testing.T) {
	svc := newEchoService(1)
	reply, err := svc.Generate(context.Background(), Request{
		Prompt:   "ping",
		ModelTag: "whatever",
		Provider: "not-configured",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !strings.Contains(reply, "ping") {
		t.Fatalf("expected echo reply, got %q", reply)
	}
}

func TestEmptyPromptRejected(t *testing.T) {
	svc := newEchoService(1)
	if _, err := svc.Generate(context.Background(), Request{ModelTag: "echo", Provider: "echo"}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestEchoHonorsCancellation(t *testing.T) {
	svc := newEchoService(5000)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Generate(ctx, Request{Prompt: "hi", ModelTag: "echo", Provider: "echo"}); err == nil {
		t.Fatalf("expected context error")
	}
}
