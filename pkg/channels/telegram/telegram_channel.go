// Package telegram lets operators talk to the agent from Telegram.
// Each inbound text message becomes one task; the Response artifact is
// sent back as one or more chat messages.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"medagent/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

type TelegramConfig struct {
	Token        string `json:"token"`
	MessageLimit int    `json:"message_limit"`
}

type TelegramChannel struct {
	config TelegramConfig
	chCtx  api.ChannelContext
	bot    *tgbotapi.BotAPI

	mu    sync.RWMutex
	chats map[string]int64 // TaskID -> chat
}

func NewTelegramChannel(cfg TelegramConfig, chCtx api.ChannelContext) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 4000
	}

	slog.Info("Telegram bot authorized", "account", bot.Self.UserName)

	return &TelegramChannel{
		config: cfg,
		chCtx:  chCtx,
		bot:    bot,
		chats:  make(map[string]int64),
	}, nil
}

func (c *TelegramChannel) ID() string {
	return "telegram"
}

// Start long-polls for updates until ctx is cancelled.
func (c *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			c.handleMessage(ctx, update.Message)
		}
	}
}

func (c *TelegramChannel) Stop() error {
	c.bot.StopReceivingUpdates()
	return nil
}

func (c *TelegramChannel) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	taskID := uuid.NewString()

	c.mu.Lock()
	c.chats[taskID] = m.Chat.ID
	c.mu.Unlock()

	session := api.SessionContext{
		ChannelID: c.ID(),
		TaskID:    taskID,
		ContextID: strconv.FormatInt(m.Chat.ID, 10),
		Username:  m.From.UserName,
	}

	if err := c.chCtx.Handler(ctx, api.TaskMessage{Session: session, Content: m.Text}); err != nil {
		slog.Error("Task failed", "task", taskID, "error", err)
		c.send(m.Chat.ID, fmt.Sprintf("Task failed: %v", err))
	}

	c.mu.Lock()
	delete(c.chats, taskID)
	c.mu.Unlock()
}

// UpdateStatus shows a typing indicator while the task is being worked.
func (c *TelegramChannel) UpdateStatus(session api.SessionContext, state api.TaskState, message string) error {
	if state != api.TaskStateWorking {
		return nil
	}
	chatID, ok := c.chat(session.TaskID)
	if !ok {
		return fmt.Errorf("telegram task %s has no chat", session.TaskID)
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, err := c.bot.Request(action)
	return err
}

// AddArtifact sends the artifact text, split to fit the message limit.
func (c *TelegramChannel) AddArtifact(session api.SessionContext, name string, content string) error {
	chatID, ok := c.chat(session.TaskID)
	if !ok {
		return fmt.Errorf("telegram task %s has no chat", session.TaskID)
	}

	for _, chunk := range splitMessage(content, c.config.MessageLimit) {
		if err := c.send(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramChannel) chat(taskID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.chats[taskID]
	return id, ok
}

func (c *TelegramChannel) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram message", "chat", chatID, "error", err)
		return err
	}
	return nil
}

// splitMessage cuts text into rune-safe chunks of at most limit runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
