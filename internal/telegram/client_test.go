package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/fxcorr/internal/notify"
)

type fakeBot struct {
	fails int
	sent  []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if len(f.sent) <= f.fails {
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	return tgbotapi.Message{}, nil
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"USD-INR", "USD\\-INR"},
		{"1.96%", "1\\.96%"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func TestFormatMessage(t *testing.T) {
	got := formatMessage(notify.Message{
		Subject: "Currency Alert: USD-INR decrease by 1.96%",
		Text:    "USD-INR has decreased by 1.96% on 2024-03-02.",
	})
	want := "🚨 *Currency Alert: USD\\-INR decrease by 1\\.96%*\n\nUSD\\-INR has decreased by 1\\.96% on 2024\\-03\\-02\\."
	if got != want {
		t.Errorf("formatMessage() = %q, want %q", got, want)
	}
}

func TestDeliver_DefaultChat(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.Deliver(context.Background(), notify.Message{Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if bot.sent[0].ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", bot.sent[0].ChatID)
	}
	if bot.sent[0].ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("ParseMode = %q, want %q", bot.sent[0].ParseMode, tgbotapi.ModeMarkdownV2)
	}
}

func TestDeliver_RecipientOverridesChat(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.Deliver(context.Background(), notify.Message{To: "-1001"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if bot.sent[0].ChatID != -1001 {
		t.Errorf("ChatID = %d, want -1001", bot.sent[0].ChatID)
	}

	if err := c.Deliver(context.Background(), notify.Message{To: "ops@example.com"}); err == nil {
		t.Error("Expected error for non-numeric recipient, got nil")
	}
}

func TestDeliver_Retries(t *testing.T) {
	bot := &fakeBot{fails: 2}
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.Deliver(context.Background(), notify.Message{}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(bot.sent) != 3 {
		t.Errorf("attempts = %d, want 3", len(bot.sent))
	}
}

func TestDeliver_GivesUp(t *testing.T) {
	bot := &fakeBot{fails: 10}
	c := newClient(bot, 42, 2, time.Millisecond)

	err := c.Deliver(context.Background(), notify.Message{})
	if err == nil {
		t.Fatal("Expected error after exhausting retries, got nil")
	}
	if len(bot.sent) != 2 {
		t.Errorf("attempts = %d, want 2", len(bot.sent))
	}
}

func TestDeliver_CancelledDuringBackoff(t *testing.T) {
	bot := &fakeBot{fails: 10}
	c := newClient(bot, 42, 5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Deliver(ctx, notify.Message{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Deliver() error = %v, want context.Canceled", err)
	}
}
