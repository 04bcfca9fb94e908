package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// pollRetryDelay is the pause after a failed poll.
var pollRetryDelay = 5 * time.Second

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := int64(0)
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			t.log.Error("create polling request", zap.Error(err))
			return
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("polling request failed", zap.Error(err))
			sleep(ctx, pollRetryDelay)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.log.Warn("read polling response", zap.Error(err))
			continue
		}
		if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "ok").Bool() {
			t.log.Warn("bad polling response", zap.ByteString("body", body))
			sleep(ctx, pollRetryDelay)
			continue
		}

		for _, update := range gjson.GetBytes(body, "result").Array() {
			offset = update.Get("update_id").Int() + 1
			text := strings.TrimSpace(update.Get("message.text").String())
			if text == "" {
				continue
			}
			t.log.Info("received command", zap.String("command", text))
			reply := handler(ctx, text)
			if reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.log.Error("send reply", zap.Error(err))
				}
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
