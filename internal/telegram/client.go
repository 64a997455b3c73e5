// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/session"
)

// StatusSource answers the /hype command.
type StatusSource interface {
	Status() session.Status
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, src StatusSource) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, src)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, src StatusSource) {
	var reply tgbotapi.MessageConfig
	switch msg.Command() {
	case "ping":
		reply = tgbotapi.NewMessage(msg.Chat.ID, "Pong")
	case "hype":
		reply = tgbotapi.NewMessage(msg.Chat.ID, formatStatus(src.Status()))
		reply.ParseMode = "MarkdownV2"
	default:
		return
	}
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError reports a failed feed poll.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(pollErr error) error {
	text := fmt.Sprintf("⚠️ *Feed error*\n`%s`", escapeMarkdownV2(pollErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Feed recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendMoment pushes an accepted moment.
func (c *Client) SendMoment(m models.Moment) error {
	return c.sendMarkdownV2(formatMoment(m))
}

var levelEmoji = map[models.HypeLevel]string{
	models.LevelCalm:   "😌",
	models.LevelWarm:   "🔥",
	models.LevelHot:    "🔥🔥",
	models.LevelInsane: "🤯",
}

// formatMoment renders a moment as a MarkdownV2 message. The reveal detail
// is sent as a spoiler so the chat mirrors the tap-to-reveal feed.
func formatMoment(m models.Moment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", levelEmoji[m.Level], escapeMarkdownV2(m.Headline))
	if m.Subtext != "" {
		fmt.Fprintf(&b, "%s\n", escapeMarkdownV2(m.Subtext))
	}
	if m.RevealDetail != "" {
		fmt.Fprintf(&b, "||%s||\n", escapeMarkdownV2(m.RevealDetail))
	}
	ts := escapeMarkdownV2(m.Timestamp.Format("15:04:05"))
	fmt.Fprintf(&b, "🕒 %s · game %s · at\\-bat %d", ts, escapeMarkdownV2(m.GameID), m.AtBat)
	return b.String()
}

// formatStatus renders the /hype reply.
func formatStatus(st session.Status) string {
	if st.GameID == "" {
		return "No game selected"
	}
	var b strings.Builder
	title := fmt.Sprintf("%s @ %s", st.Away, st.Home)
	if st.Away == "" || st.Home == "" {
		title = "Game " + st.GameID
	}
	fmt.Fprintf(&b, "*%s*", escapeMarkdownV2(title))
	if st.AwayRuns != nil && st.HomeRuns != nil {
		fmt.Fprintf(&b, " %d\\-%d", *st.AwayRuns, *st.HomeRuns)
	}
	b.WriteString("\n")

	h := st.Hype
	if h.HasData {
		fmt.Fprintf(&b, "%s Hype %s \\(%s\\)\n", levelEmoji[h.Level],
			escapeMarkdownV2(fmt.Sprintf("%.0f", h.Value)), escapeMarkdownV2(string(h.Level)))
	} else {
		b.WriteString("Hype: no data\n")
	}
	if h.Subtext != "" {
		b.WriteString(escapeMarkdownV2(h.Subtext))
	}
	return strings.TrimRight(b.String(), "\n")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
