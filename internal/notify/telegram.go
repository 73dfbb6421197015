package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram sends run notifications through the Telegram bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	retries int
}

// NewTelegram builds a notifier for the given bot token and chat.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: defaultTelegramAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
		retries: 2,
	}
}

// newTelegramWithBase is the test seam for pointing at an httptest server.
func newTelegramWithBase(token, chatID, baseURL string) *Telegram {
	tg := NewTelegram(token, chatID)
	tg.baseURL = baseURL
	return tg
}

func (t *Telegram) RunSucceeded(ctx context.Context, report RunReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s: carga concluída\n", report.Job)
	fmt.Fprintf(&b, "Fatos: %d em %d lote(s), %d linha(s) ignorada(s)\n",
		report.FactRows, report.FactBatches, report.SkippedRows)
	for _, s := range report.Stages {
		fmt.Fprintf(&b, "%s: %s\n", s.Stage, formatClock(s.Elapsed))
	}
	fmt.Fprintf(&b, "Total: %s", formatClock(report.Total))
	t.send(ctx, b.String())
}

func (t *Telegram) StageFailed(ctx context.Context, job, stage string, err error, elapsed time.Duration) {
	msg := fmt.Sprintf("❌ %s: falha na etapa %s após %s\n%v",
		job, stage, formatClock(elapsed), err)
	t.send(ctx, msg)
}

// send posts one message, retrying transient failures. Delivery problems are
// logged and swallowed.
func (t *Telegram) send(ctx context.Context, text string) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				log.Printf("notify: telegram send aborted: %v", ctx.Err())
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err != nil {
			log.Printf("notify: telegram request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return
		}
		lastErr = fmt.Errorf("telegram status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break // bad token/chat id will not fix itself
		}
	}
	log.Printf("notify: telegram delivery failed: %v", lastErr)
}
