package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/config"
	"dnsbot/internal/db"
	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
	"dnsbot/internal/moderation"
	"dnsbot/internal/order"
	"dnsbot/internal/session"
)

// Sender is the part of *tgbotapi.BotAPI the dispatcher writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// IPRegistrar binds a client IP to a service.
type IPRegistrar interface {
	Register(ctx context.Context, serviceID string, owner int64, ip string) error
}

type Service struct {
	api        *tgbotapi.BotAPI
	bot        Sender
	repo       *db.Repository
	cfg        *config.Config
	sessions   session.Store
	orders     *order.Service
	moderation *moderation.Service
	registrar  IPRegistrar
	now        func() time.Time
}

func New(cfg *config.Config, repo *db.Repository, sessions session.Store, registrar IPRegistrar) (*Service, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	// long polling needs the webhook gone
	_, err = bot.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		slog.Warn("Failed to delete webhook", "error", err)
	} else {
		slog.Info("Webhook deleted, using long polling")
	}

	slog.Info("Authorized as telegram bot", "username", bot.Self.UserName)

	service := newService(bot, cfg, repo, sessions, registrar)
	service.api = bot

	if err := service.setCommands(); err != nil {
		slog.Warn("Failed to set command menu", "error", err)
	}

	return service, nil
}

func newService(bot Sender, cfg *config.Config, repo *db.Repository, sessions session.Store, registrar IPRegistrar) *Service {
	return &Service{
		bot:        bot,
		repo:       repo,
		cfg:        cfg,
		sessions:   sessions,
		orders:     order.New(repo),
		moderation: moderation.New(repo, sessions, cfg.AdminID),
		registrar:  registrar,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := s.api.GetUpdatesChan(u)
	defer s.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			s.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate routes one inbound event.
func (s *Service) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling update", "update_id", upd.UpdateID, "panic", r)
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.From != nil:
		if _, err := s.repo.EnsureUser(ctx, upd.Message.From.ID); err != nil {
			slog.Error("Failed to register user", "user_id", upd.Message.From.ID, "error", err)
		}

		switch {
		case upd.Message.IsCommand():
			metrics.IncUpdate("command")
			s.handleCommand(ctx, upd.Message)
		case len(upd.Message.Photo) > 0 || upd.Message.Document != nil:
			metrics.IncUpdate("image")
			s.handleImage(ctx, upd.Message)
		default:
			metrics.IncUpdate("text")
			s.handleText(ctx, upd.Message)
		}

	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		metrics.IncUpdate("callback")
		if _, err := s.repo.EnsureUser(ctx, upd.CallbackQuery.From.ID); err != nil {
			slog.Error("Failed to register user", "user_id", upd.CallbackQuery.From.ID, "error", err)
		}
		s.handleCallbackQuery(ctx, upd.CallbackQuery)
	}
}

func (s *Service) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := Command(msg.Command())
	if !cmd.IsValid() {
		s.handleUnknown(msg)
		return
	}

	switch cmd {
	case CmdStart, CmdMenu:
		s.clearSession(ctx, msg.From.ID)
		s.sendMainMenu(msg.Chat.ID, msg.From.ID)
	case CmdHelp:
		s.handleHelp(msg)
	}
}

func (s *Service) handleCallbackQuery(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data

	switch CallbackData(data) {
	case CallbackMainMenu:
		s.clearSession(ctx, cb.From.ID)
		s.showMainMenu(cb)
		return
	case CallbackMyServices:
		s.clearSession(ctx, cb.From.ID)
		s.handleMyServices(ctx, cb)
		return
	case CallbackBuyNew:
		s.handleBuyNew(ctx, cb)
		return
	case CallbackGetTest:
		s.handleGetTest(ctx, cb)
		return
	case CallbackRandomName:
		s.handleRandomName(ctx, cb)
		return
	case CallbackStats:
		s.handleStats(ctx, cb)
		return
	case CallbackDNS:
		s.handleDNS(cb)
		return
	case CallbackFAQ:
		s.handleFAQ(cb)
		return
	case CallbackTutorials:
		s.handleTutorials(cb)
		return
	case CallbackTutorialAndroid, CallbackTutorialIOS, CallbackTutorialWindows:
		s.handleTutorial(cb, CallbackData(data))
		return
	}

	switch {
	case strings.HasPrefix(data, CallbackServiceInfo.String()):
		s.handleServiceInfo(ctx, cb)
	case strings.HasPrefix(data, CallbackRegisterIP.String()):
		s.handleRegisterIP(ctx, cb)
	case strings.HasPrefix(data, CallbackManualIP.String()):
		s.handleManualIP(ctx, cb)
	case strings.HasPrefix(data, CallbackRenewService.String()):
		s.handleRenewService(ctx, cb)
	case strings.HasPrefix(data, CallbackRenewDuration.String()):
		s.handleDuration(ctx, cb, true)
	case strings.HasPrefix(data, CallbackDuration.String()):
		s.handleDuration(ctx, cb, false)
	case strings.HasPrefix(data, CallbackApprove.String()):
		s.handleApprove(ctx, cb)
	case strings.HasPrefix(data, CallbackReject.String()):
		s.handleDecisionReason(ctx, cb, CallbackReject, session.ActionReject)
	case strings.HasPrefix(data, CallbackBlock.String()):
		s.handleDecisionReason(ctx, cb, CallbackBlock, session.ActionBlock)
	default:
		s.answerCallback(cb.ID, "Unknown action")
	}
}

// handleText resumes the step the sender's session is waiting for, if any.
func (s *Service) handleText(ctx context.Context, msg *tgbotapi.Message) {
	owner := msg.From.ID

	pending, err := s.moderation.Pending(ctx, owner)
	if err != nil {
		s.handleError(msg.Chat.ID, err)
		return
	}
	if pending {
		s.handleAdminReason(ctx, msg)
		return
	}

	sess, err := s.sessions.Get(ctx, owner)
	if err != nil {
		s.handleError(msg.Chat.ID, err)
		return
	}

	switch {
	case sess.Matches(session.StateAwaitingName, owner):
		s.handleServiceName(ctx, msg, sess)
	case sess.Matches(session.StateAwaitingIP, owner):
		s.handleIPText(ctx, msg, sess)
	case sess != nil && sess.Owner == owner && sess.State.AwaitsReceipt():
		s.handleError(msg.Chat.ID, domain.ErrNoReceipt)
	default:
		s.handleStale(msg.Chat.ID, "text")
	}
}

func (s *Service) handleStale(chatID int64, kind string) {
	metrics.IncStaleEvent(kind)
	msg := tgbotapi.NewMessage(chatID, "⚠️ Please use the menu buttons to continue.")
	msg.ReplyMarkup = *backKeyboard(CallbackMainMenu.String())
	s.send(msg)
}

func (s *Service) handleHelp(msg *tgbotapi.Message) {
	text := `🌐 DNS service bot

/start - main menu
/menu - main menu
/help - this help

Buy a service, register your IP, and set the DNS servers on your device.`
	s.reply(msg.Chat.ID, text)
}

func (s *Service) handleUnknown(msg *tgbotapi.Message) {
	s.reply(msg.Chat.ID, "Unknown command. Use /start")
}

func (s *Service) clearSession(ctx context.Context, owner int64) {
	if err := s.sessions.Clear(ctx, owner); err != nil {
		slog.Error("Failed to clear session", "user_id", owner, "error", err)
	}
}

func (s *Service) send(c tgbotapi.Chattable) {
	if _, err := s.bot.Send(c); err != nil {
		slog.Error("Failed to send message", "error", err)
	}
}

func (s *Service) reply(chatID int64, text string) {
	s.send(tgbotapi.NewMessage(chatID, text))
}

// show replaces the callback's message, or sends a new one when it cannot be edited.
func (s *Service) show(cb *tgbotapi.CallbackQuery, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Text == "" {
		msg := tgbotapi.NewMessage(chatOf(cb), text)
		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		s.send(msg)
		return
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ReplyMarkup = keyboard
	s.send(edit)
}

func (s *Service) answerCallback(callbackID, text string) {
	if _, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		slog.Debug("Failed to answer callback", "error", err)
	}
}

func chatOf(cb *tgbotapi.CallbackQuery) int64 {
	if cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}
	return cb.From.ID
}

func (s *Service) Bot() *tgbotapi.BotAPI {
	return s.api
}

func (s *Service) setCommands() error {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "🚀 Start"},
		{Command: "menu", Description: "📋 Main menu"},
		{Command: "help", Description: "❓ Help"},
	}

	_, err := s.bot.Request(tgbotapi.NewSetMyCommands(commands...))
	return err
}
