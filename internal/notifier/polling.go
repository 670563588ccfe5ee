package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type pollMessage struct {
	Text string `json:"text"`
	Chat *struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type pollUpdate struct {
	UpdateID int          `json:"update_id"`
	Message  *pollMessage `json:"message"`
}

// PollTimeout is the long-poll wait passed to getUpdates.
var PollTimeout = 30 * time.Second

// pollRetryDelay is the pause after a failed getUpdates call.
var pollRetryDelay = 5 * time.Second

// StartPolling long-polls getUpdates and answers commands from the
// configured chat. It blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: PollTimeout + 5*time.Second}
	offset := 0

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Warn().Err(err).Msg("telegram poll failed")
			sleepCtx(ctx, pollRetryDelay)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			text, ok := t.command(u)
			if !ok {
				continue
			}
			t.log.Info().Str("command", text).Msg("received command")
			if reply := handler(ctx, text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.log.Error().Err(err).Msg("send reply")
				}
			}
		}
	}
	t.log.Info().Msg("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]pollUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d", t.endpoint("getUpdates"), offset, int(PollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool         `json:"ok"`
		Description string       `json:"description"`
		Result      []pollUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: %s", result.Description)
	}
	return result.Result, nil
}

// command extracts the text of an update addressed to this bot's chat.
// Updates from other chats are dropped.
func (t *TelegramNotifier) command(u pollUpdate) (string, bool) {
	m := u.Message
	if m == nil {
		return "", false
	}
	if m.Chat != nil && strconv.FormatInt(m.Chat.ID, 10) != t.ChatID {
		t.log.Warn().Int64("chat_id", m.Chat.ID).Msg("ignoring command from unknown chat")
		return "", false
	}
	text := strings.TrimSpace(m.Text)
	return text, text != ""
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
