package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/pricing"
)

// Service sends operator notifications about repricing runs to a Telegram
// chat. Disabled when token or chat id is empty.
type Service struct {
	logger   *logrus.Logger
	client   *http.Client
	botToken string
	chatID   string
}

func NewService(botToken, chatID string, logger *logrus.Logger) *Service {
	return &Service{
		logger:   logger,
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the service has a usable configuration.
func (s *Service) Enabled() bool {
	return s.botToken != "" && s.chatID != ""
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.Enabled() {
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)
	payload := map[string]interface{}{
		"chat_id":    s.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyBatchResult sends a summary of a completed repricing run.
func (s *Service) NotifyBatchResult(result *pricing.BatchResult) error {
	if !s.Enabled() {
		return nil
	}

	var skipped int
	for _, n := range result.Skipped {
		skipped += n
	}

	message := fmt.Sprintf(
		"<b>Repricing run completed</b>\n\n"+
			"🏠 Listings: %d\n"+
			"💰 Changed: %d\n"+
			"⏭️ Skipped: %d\n"+
			"⚠️ Failed: %d\n"+
			"⏱️ Duration: %s",
		result.Total,
		len(result.Changed),
		skipped,
		result.Failed,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)

	if movers := topMovers(result, 3); movers != "" {
		message += "\n\n<b>Top movers</b>\n" + movers
	}

	return s.SendMessage(message)
}

// topMovers formats the n largest absolute changes in the run.
func topMovers(result *pricing.BatchResult, n int) string {
	if len(result.Changed) == 0 {
		return ""
	}

	changes := make([]int, len(result.Changed))
	for i := range changes {
		changes[i] = i
	}
	sort.Slice(changes, func(a, b int) bool {
		pa := result.Changed[changes[a]].ChangePercent
		pb := result.Changed[changes[b]].ChangePercent
		if pa < 0 {
			pa = -pa
		}
		if pb < 0 {
			pb = -pb
		}
		return pa > pb
	})

	if n > len(changes) {
		n = len(changes)
	}

	var out string
	for _, idx := range changes[:n] {
		c := result.Changed[idx]
		out += fmt.Sprintf("#%d: %.0f → %.0f (%+.1f%%)\n", c.ListingID, c.OldPrice, c.NewPrice, c.ChangePercent)
	}
	return out
}
