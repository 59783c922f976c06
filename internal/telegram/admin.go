package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
	"dnsbot/internal/session"
)

func (s *Service) handleApprove(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	admin := cb.From.ID
	s.answerCallback(cb.ID, "")

	paymentID, owner, ok := CallbackApprove.ParseDecision(cb.Data)
	if !ok {
		s.handleError(chatOf(cb), domain.ErrNotFound)
		return
	}

	payment, svc, err := s.moderation.Approve(ctx, admin, paymentID, owner)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}
	metrics.IncPayment("approved", payment.IsRenewal)

	verb := "activated"
	if payment.IsRenewal {
		verb = "renewed"
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 My services", CallbackMyServices.String())),
	)
	userMsg := tgbotapi.NewMessage(owner, fmt.Sprintf(`✅ Your payment was approved and service %s was %s!

⏱ Period: %d days
📅 Valid until: %s`,
		svc.Name, verb, payment.Duration, svc.ExpiryDate.Format(dateLayout)))
	userMsg.ReplyMarkup = kb
	s.send(userMsg)

	s.closeDecision(cb)
	s.reply(chatOf(cb), fmt.Sprintf("✅ Payment approved and service %s %s for user %d.", svc.Name, verb, owner))
}

func (s *Service) handleDecisionReason(ctx context.Context, cb *tgbotapi.CallbackQuery, prefix CallbackPrefix, action session.Action) {
	admin := cb.From.ID
	s.answerCallback(cb.ID, "")

	paymentID, owner, ok := prefix.ParseDecision(cb.Data)
	if !ok {
		s.handleError(chatOf(cb), domain.ErrNotFound)
		return
	}

	if err := s.moderation.BeginReason(ctx, admin, action, paymentID, owner); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	prompt := "📝 Please type the reason for rejecting this payment:"
	if action == session.ActionBlock {
		prompt = "📝 Please type the reason for blocking this user:"
	}
	s.reply(chatOf(cb), prompt)
}

func (s *Service) handleAdminReason(ctx context.Context, msg *tgbotapi.Message) {
	decision, err := s.moderation.FinalizeReason(ctx, msg.From.ID, msg.Text)
	if err != nil {
		s.handleError(msg.Chat.ID, err)
		return
	}

	p := decision.Payment
	reason := ""
	if p.Reason != nil {
		reason = *p.Reason
	}

	if decision.Blocked() {
		metrics.IncPayment("blocked", p.IsRenewal)
		s.reply(p.OwnerID, fmt.Sprintf("🚫 You have been blocked from using this bot.\nReason: %s", reason))
		s.reply(msg.Chat.ID, fmt.Sprintf("✅ User %d was blocked and the reason was sent to them.", p.OwnerID))
		return
	}

	metrics.IncPayment("rejected", p.IsRenewal)
	s.reply(p.OwnerID, fmt.Sprintf("❌ Your payment for service %s was rejected.\nReason: %s", p.ServiceName, reason))
	s.reply(msg.Chat.ID, fmt.Sprintf("✅ Payment for service %s was rejected and the reason was sent to the user.", p.ServiceName))
}

// closeDecision drops the decision buttons from the receipt message.
func (s *Service) closeDecision(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := s.bot.Send(edit); err != nil {
		slog.Debug("Failed to close decision buttons", "error", err)
	}
}
