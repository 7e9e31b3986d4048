package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ssq-predictor/internal/config"
	"ssq-predictor/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot Telegram机器人
type Bot struct {
	api           *tgbotapi.BotAPI
	handler       *Handler
	updateChannel tgbotapi.UpdatesChannel
	stopChannel   chan struct{}
	wg            sync.WaitGroup

	// 停止时取消进行中的命令
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot 创建新的Telegram机器人
func NewBot(cfg *config.Telegram, handler *Handler) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false
	logger.Infof("Telegram bot authorized on account: %s", bot.Self.UserName)

	// 配置更新
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.Timeout.Seconds())

	b := newBot(bot, handler)
	b.updateChannel = bot.GetUpdatesChan(u)
	return b, nil
}

func newBot(api *tgbotapi.BotAPI, handler *Handler) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:         api,
		handler:     handler,
		stopChannel: make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start 启动机器人
func (b *Bot) Start() {
	logger.Info("Starting Telegram bot...")

	b.wg.Add(1)
	go b.handleUpdates()
	logger.Info("Telegram bot started successfully")
}

// Stop 停止机器人
func (b *Bot) Stop() {
	logger.Info("Stopping Telegram bot...")
	close(b.stopChannel)
	b.cancel()
	b.api.StopReceivingUpdates()
	b.wg.Wait()
	logger.Info("Telegram bot stopped")
}

// handleUpdates 处理更新
func (b *Bot) handleUpdates() {
	defer b.wg.Done()

	for {
		select {
		case update, ok := <-b.updateChannel:
			if !ok {
				return
			}
			if update.Message != nil {
				// 只处理私聊消息，忽略群组消息
				if update.Message.Chat.IsPrivate() {
					message := update.Message
					b.spawn(func() { b.handleMessage(message) })
				}
			} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
				if update.CallbackQuery.Message.Chat.IsPrivate() {
					callback := update.CallbackQuery
					b.spawn(func() { b.handleCallbackQuery(callback) })
				}
			}
		case <-b.stopChannel:
			return
		}
	}
}

// spawn 在独立协程中处理一条更新，Stop 会等待其结束
func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// handleMessage 处理消息
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if !message.IsCommand() {
		b.sendMessage(chatID, commandForText(message.Text))
		return
	}

	command := message.Command()
	logger.Debugf("Received private command: %s from user: %d", command, chatID)

	if command == "predict" {
		b.sendMessage(chatID, "🔄 正在分析历史数据并生成预测，请稍候...")
	}
	reply := b.handler.Handle(b.ctx, command, message.CommandArguments())
	if command == "start" {
		b.sendWithKeyboard(chatID, reply)
		return
	}
	b.sendMessage(chatID, reply)
}

// commandForText 关键词回复
func commandForText(text string) string {
	switch strings.TrimSpace(text) {
	case "最新", "开奖":
		return "发送 /latest 查看最新开奖"
	case "预测":
		return "发送 /predict 生成预测号码"
	case "统计", "冷热":
		return "发送 /stats 查看号码统计"
	default:
		return "请使用命令，发送 /help 查看帮助。"
	}
}

// handleCallbackQuery 处理回调查询
func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	logger.Debugf("Received private callback: %s from user: %d", callback.Data, chatID)

	// 应答回调查询
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logger.Warnf("Failed to answer callback: %v", err)
	}
	b.sendMessage(chatID, b.handler.Handle(b.ctx, callback.Data, ""))
}

// sendMessage 发送消息（仅发送给私聊）
func (b *Bot) sendMessage(chatID int64, text string) {
	if chatID < 0 {
		logger.Debugf("Skipping message to group chat %d", chatID)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = CreateInlineKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

// GetBotInfo 获取机器人信息
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":   b.api.Self.UserName,
		"id":         b.api.Self.ID,
		"first_name": b.api.Self.FirstName,
		"is_bot":     b.api.Self.IsBot,
	}
}
