package twilio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewVerifyProviderRequiresCredentials(t *testing.T) {
	if _, err := NewVerifyProvider(Config{AccountSID: "AC1", AuthToken: "tok"}); err == nil {
		t.Fatal("missing verify sid should fail")
	}

	p, err := NewVerifyProvider(Config{AccountSID: "AC1", AuthToken: "tok", VerifySID: "VA1"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.channel != "whatsapp" {
		t.Fatalf("default channel = %q, want whatsapp", p.channel)
	}
}

func TestRecipientPerChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    string
	}{
		{"whatsapp", "whatsapp:+5511999990000"},
		{"sms", "+5511999990000"},
	}
	for _, tt := range tests {
		p := &VerifyProvider{channel: tt.channel}
		if got := p.recipient("+5511999990000"); got != tt.want {
			t.Fatalf("%s: recipient = %q, want %q", tt.channel, got, tt.want)
		}
	}
}

func TestRunWithContextHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)
	err := runWithContext(ctx, func() error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunWithContextReturnsCallError(t *testing.T) {
	boom := errors.New("boom")
	if err := runWithContext(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
