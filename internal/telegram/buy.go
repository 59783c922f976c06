package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
	"dnsbot/internal/order"
	"dnsbot/internal/session"
)

const dateLayout = "2006-01-02"

func nameKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎲 Random name", CallbackRandomName.String())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMainMenu.String())),
	)
	return &kb
}

func (s *Service) handleBuyNew(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := cb.From.ID
	s.answerCallback(cb.ID, "")
	s.clearSession(ctx, owner)

	if err := s.orders.StartPurchase(ctx, owner); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	if _, err := session.Open(ctx, s.sessions, owner, session.StateAwaitingName); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	s.show(cb, "📝 Please choose a name for your service (English letters and digits only):", nameKeyboard())
}

func (s *Service) handleRandomName(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := cb.From.ID
	sess, ok, err := session.Resume(ctx, s.sessions, session.StateAwaitingName, owner)
	if err != nil {
		s.answerCallback(cb.ID, "")
		s.handleError(chatOf(cb), err)
		return
	}
	if !ok {
		s.answerCallback(cb.ID, "")
		s.handleStale(chatOf(cb), "callback")
		return
	}
	s.answerCallback(cb.ID, "")

	name := s.orders.RandomName(owner, cb.From.UserName)
	s.advanceToDuration(ctx, chatOf(cb), sess, name, func(text string, kb *tgbotapi.InlineKeyboardMarkup) {
		s.show(cb, text, kb)
	})
}

func (s *Service) handleServiceName(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) {
	name := strings.TrimSpace(msg.Text)

	if err := s.orders.ValidateName(ctx, msg.From.ID, name); err != nil {
		// bad or taken names keep the step open for another try
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict) {
			s.handleErrorWithKeyboard(msg.Chat.ID, err, nameKeyboard())
			return
		}
		s.clearSession(ctx, msg.From.ID)
		s.handleError(msg.Chat.ID, err)
		return
	}

	s.advanceToDuration(ctx, msg.Chat.ID, sess, name, func(text string, kb *tgbotapi.InlineKeyboardMarkup) {
		out := tgbotapi.NewMessage(msg.Chat.ID, text)
		out.ReplyMarkup = *kb
		s.send(out)
	})
}

func (s *Service) advanceToDuration(ctx context.Context, chatID int64, sess *session.Session, name string, render func(string, *tgbotapi.InlineKeyboardMarkup)) {
	sess.ServiceName = name
	sess.State = session.StateAwaitingDuration
	if err := s.sessions.Set(ctx, sess.Owner, sess); err != nil {
		s.handleError(chatID, err)
		return
	}

	render(fmt.Sprintf("📋 Service name: %s\nPlease choose the service period:", name),
		durationKeyboard(CallbackDuration, CallbackBuyNew.String()))
}

func (s *Service) handleRenewService(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := cb.From.ID
	s.answerCallback(cb.ID, "")

	serviceID, ok := CallbackRenewService.Arg(cb.Data)
	if !ok {
		s.handleError(chatOf(cb), domain.ErrNotFound)
		return
	}

	s.clearSession(ctx, owner)
	svc, err := s.orders.StartRenewal(ctx, owner, serviceID)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	sess, err := session.Open(ctx, s.sessions, owner, session.StateAwaitingRenewal)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}
	sess.ServiceID = svc.ServiceID
	sess.ServiceName = svc.Name
	sess.IsRenewal = true
	if err := s.sessions.Set(ctx, owner, sess); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	s.show(cb, fmt.Sprintf("🔄 Renew service %s\nPlease choose the renewal period:", svc.Name),
		durationKeyboard(CallbackRenewDuration, CallbackServiceInfo.WithID(svc.ServiceID)))
}

func (s *Service) handleDuration(ctx context.Context, cb *tgbotapi.CallbackQuery, renewal bool) {
	owner := cb.From.ID
	prefix, want, next := CallbackDuration, session.StateAwaitingDuration, session.StateAwaitingReceipt
	if renewal {
		prefix, want, next = CallbackRenewDuration, session.StateAwaitingRenewal, session.StateAwaitingRenewRcpt
	}

	sess, ok, err := session.Resume(ctx, s.sessions, want, owner)
	if err != nil {
		s.answerCallback(cb.ID, "")
		s.handleError(chatOf(cb), err)
		return
	}
	if !ok {
		s.answerCallback(cb.ID, "")
		s.handleStale(chatOf(cb), "callback")
		return
	}
	s.answerCallback(cb.ID, "")

	days, ok := prefix.Days(cb.Data)
	if !ok {
		s.handleError(chatOf(cb), domain.ErrBadPlan)
		return
	}

	var quote *order.Quote
	if renewal {
		quote, err = s.orders.ChooseRenewalDuration(sess.ServiceID, days)
	} else {
		quote, err = s.orders.ChooseDuration(days)
	}
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	sess.ServiceID = quote.ServiceID
	sess.Duration = quote.Duration
	sess.Price = quote.Price
	sess.State = next
	if err := s.sessions.Set(ctx, owner, sess); err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	back := CallbackBuyNew.String()
	if renewal {
		back = CallbackServiceInfo.WithID(sess.ServiceID)
	}
	text := fmt.Sprintf(`💳 Payment

Service: %s
Period: %d days
Amount: %s Toman

Please transfer the amount to this card and send the receipt image here:
%s`,
		sess.ServiceName, quote.Duration, formatPrice(quote.Price), s.cfg.CardNumber)
	s.show(cb, text, backKeyboard(back))
}

// handleImage is the single receipt branch; the session decides purchase or renewal.
func (s *Service) handleImage(ctx context.Context, msg *tgbotapi.Message) {
	owner := msg.From.ID

	sess, err := s.sessions.Get(ctx, owner)
	if err != nil {
		s.handleError(msg.Chat.ID, err)
		return
	}
	if sess == nil || sess.Owner != owner || !sess.State.AwaitsReceipt() {
		s.handleStale(msg.Chat.ID, "image")
		return
	}

	image := receiptImage(msg)
	if image.fileID == "" {
		s.handleError(msg.Chat.ID, domain.ErrNoReceipt)
		return
	}

	// the step ends here whatever happens next
	defer s.clearSession(ctx, owner)

	payment, err := s.orders.SubmitReceipt(ctx, order.Receipt{
		Owner:       owner,
		ServiceID:   sess.ServiceID,
		ServiceName: sess.ServiceName,
		Duration:    sess.Duration,
		Price:       sess.Price,
		Caption:     msg.Caption,
		ImageID:     image.fileID,
		IsRenewal:   sess.IsRenewal,
	})
	if err != nil {
		s.handleError(msg.Chat.ID, err)
		return
	}
	metrics.IncPayment("submitted", payment.IsRenewal)

	s.reply(msg.Chat.ID, "⏳ Your payment is under review. Please wait for the administrator's approval.")
	s.forwardReceipt(payment, image, msg.From.UserName)
}

// receiptFile is the uploaded receipt; documents must be resent as documents.
type receiptFile struct {
	fileID   string
	document bool
}

// receiptImage returns the largest photo size or an image document.
func receiptImage(msg *tgbotapi.Message) receiptFile {
	if n := len(msg.Photo); n > 0 {
		return receiptFile{fileID: msg.Photo[n-1].FileID}
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return receiptFile{fileID: msg.Document.FileID, document: true}
	}
	return receiptFile{}
}

func (s *Service) forwardReceipt(p *db.PendingPayment, image receiptFile, username string) {
	if s.cfg.AdminID == 0 {
		slog.Warn("No administrator configured, receipt not forwarded", "payment_id", p.PaymentID)
		return
	}

	if username == "" {
		username = "no username"
	}
	kind := "New purchase"
	if p.IsRenewal {
		kind = "Renewal"
	}

	caption := fmt.Sprintf("🧾 *%s*\n\n👤 User: %s \\(%s\\)\n📋 Service: %s\n⏱ Period: %s days\n💰 Amount: %s\n📝 Caption: %s",
		escapeMarkdown(kind),
		escapeMarkdown(username),
		escapeMarkdown(fmt.Sprint(p.OwnerID)),
		escapeMarkdown(p.ServiceName),
		escapeMarkdown(fmt.Sprint(p.Duration)),
		escapeMarkdown(formatPrice(p.Price)),
		escapeMarkdown(p.Caption),
	)

	var receipt tgbotapi.Chattable
	if image.document {
		doc := tgbotapi.NewDocument(s.cfg.AdminID, tgbotapi.FileID(image.fileID))
		doc.Caption = caption
		doc.ParseMode = tgbotapi.ModeMarkdownV2
		doc.ReplyMarkup = decisionKeyboard(p.PaymentID, p.OwnerID)
		receipt = doc
	} else {
		photo := tgbotapi.NewPhoto(s.cfg.AdminID, tgbotapi.FileID(image.fileID))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		photo.ReplyMarkup = decisionKeyboard(p.PaymentID, p.OwnerID)
		receipt = photo
	}

	if _, err := s.bot.Send(receipt); err != nil {
		// a pending payment locks the owner out until the admin decides it
		slog.Error("Failed to forward receipt, sending summary only",
			"payment_id", p.PaymentID, "user_id", p.OwnerID, "document", image.document, "error", err)

		summary := tgbotapi.NewMessage(s.cfg.AdminID, caption+"\n\n⚠️ Receipt file could not be attached\\.")
		summary.ParseMode = tgbotapi.ModeMarkdownV2
		summary.ReplyMarkup = decisionKeyboard(p.PaymentID, p.OwnerID)
		s.send(summary)
	}
}

func decisionKeyboard(paymentID string, owner int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Approve", CallbackApprove.Decision(paymentID, owner))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Reject", CallbackReject.Decision(paymentID, owner))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🚫 Block", CallbackBlock.Decision(paymentID, owner))),
	)
}

// escapeMarkdown escapes user text for MarkdownV2.
func escapeMarkdown(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ReplaceAll(text, `\`, `\\`))
}

func (s *Service) handleGetTest(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := cb.From.ID
	s.answerCallback(cb.ID, "")
	s.clearSession(ctx, owner)

	svc, err := s.orders.IssueTest(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrTestUsed) {
			s.handleErrorWithKeyboard(chatOf(cb), err, buyKeyboard())
			return
		}
		s.handleError(chatOf(cb), err)
		return
	}
	metrics.IncTrial()

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📍 Register IP", CallbackRegisterIP.WithID(svc.ServiceID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMyServices.String())),
	)
	text := fmt.Sprintf(`🧪 Your trial service is active!

📋 Name: %s
⏳ Valid until: %s
⏱ Duration: 24 hours

Register your IP to start using it.`,
		svc.Name, svc.ExpiryDate.Format(dateLayout+" 15:04"))
	s.show(cb, text, &kb)
}
