package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
	"dnsbot/internal/session"
)

func (s *Service) handleMyServices(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")

	services, err := s.repo.ListServices(ctx, cb.From.ID)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	if len(services) == 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 Buy new service", CallbackBuyNew.String())),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMainMenu.String())),
		)
		s.show(cb, "📭 You have no services yet. Buy a new one or go back to the main menu:", &kb)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, svc := range services {
		label := svc.Name
		if svc.IsTest {
			label += " 🧪"
		}
		if svc.Active() {
			label += " ✅"
		} else {
			label += " ⏳"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, CallbackServiceInfo.WithID(svc.ServiceID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMainMenu.String())))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	s.show(cb, "📋 Your services:", &kb)
}

func (s *Service) handleServiceInfo(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")
	s.clearSession(ctx, cb.From.ID)

	serviceID, _ := CallbackServiceInfo.Arg(cb.Data)
	svc, err := s.repo.FindService(ctx, serviceID, cb.From.ID)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Service: %s\n", svc.Name)
	if svc.IsTest {
		b.WriteString("🧪 Trial service\n")
	}
	fmt.Fprintf(&b, "📅 Purchased: %s\n", svc.PurchaseDate.Format(dateLayout))
	fmt.Fprintf(&b, "⏳ Expires: %s\n", svc.ExpiryDate.Format(dateLayout))
	if svc.Active() {
		fmt.Fprintf(&b, "✅ Status: active (%d days left)\n", svc.RemainingDays(s.now()))
	} else {
		b.WriteString("⛔ Status: expired\n")
	}
	if svc.IPAddress != nil && *svc.IPAddress != "" {
		fmt.Fprintf(&b, "📍 IP: %s\n", *svc.IPAddress)
	} else {
		b.WriteString("📍 IP: not registered\n")
	}
	fmt.Fprintf(&b, "\n🌐 DNS: %s / %s", s.cfg.DNS1, s.cfg.DNS2)

	ipLabel := "📍 Register IP"
	if svc.IPAddress != nil {
		ipLabel = "📍 Register new IP"
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ipLabel, CallbackRegisterIP.WithID(svc.ServiceID))),
	}
	if !svc.IsTest {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Renew service", CallbackRenewService.WithID(svc.ServiceID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMyServices.String())))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	s.show(cb, b.String(), &kb)
}

func (s *Service) handleRegisterIP(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")

	serviceID, _ := CallbackRegisterIP.Arg(cb.Data)
	if _, err := s.repo.FindService(ctx, serviceID, cb.From.ID); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📍 Register automatically", s.cfg.RegisterURL(serviceID, cb.From.ID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✍️ Enter IP manually", CallbackManualIP.WithID(serviceID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackServiceInfo.WithID(serviceID))),
	)
	s.show(cb, "📡 How do you want to register your IP?", &kb)
}

func (s *Service) handleManualIP(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := cb.From.ID
	s.answerCallback(cb.ID, "")

	serviceID, _ := CallbackManualIP.Arg(cb.Data)
	if _, err := s.repo.FindService(ctx, serviceID, owner); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	sess, err := session.Open(ctx, s.sessions, owner, session.StateAwaitingIP)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}
	sess.ServiceID = serviceID
	if err := s.sessions.Set(ctx, owner, sess); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	s.show(cb, "✍️ Please send the IP address you want to register (for example 5.160.12.34).\nTurn off any VPN first.",
		backKeyboard(CallbackServiceInfo.WithID(serviceID)))
}

// handleIPText runs one registration attempt; the step closes either way.
func (s *Service) handleIPText(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) {
	owner := msg.From.ID
	s.clearSession(ctx, owner)

	ip := strings.TrimSpace(msg.Text)
	err := s.registrar.Register(ctx, sess.ServiceID, owner, ip)
	if err != nil {
		metrics.IncIPRegistration("chat", ipResult(err))
		retry := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✍️ Try again", CallbackManualIP.WithID(sess.ServiceID))),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackServiceInfo.WithID(sess.ServiceID))),
		)
		if errors.Is(err, domain.ErrNotFound) {
			s.handleError(msg.Chat.ID, err)
			return
		}
		s.handleErrorWithKeyboard(msg.Chat.ID, err, &retry)
		return
	}
	metrics.IncIPRegistration("chat", "ok")

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📍 Register new IP", CallbackRegisterIP.WithID(sess.ServiceID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackServiceInfo.WithID(sess.ServiceID))),
	)
	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("✅ IP %s registered successfully!\n\n🌐 DNS: %s / %s", ip, s.cfg.DNS1, s.cfg.DNS2))
	out.ReplyMarkup = kb
	s.send(out)
}

func ipResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBadIP):
		return "rejected"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_error"
	}
	return "error"
}
