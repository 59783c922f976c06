package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/db"
)

// NotifyTrialExpired tells the owner their trial ended and offers a purchase.
func (s *Service) NotifyTrialExpired(_ context.Context, svc db.Service) error {
	msg := tgbotapi.NewMessage(svc.OwnerID,
		fmt.Sprintf("🧪 Your trial service (%s) has expired! ⏳ Please buy a new service to continue:", svc.Name))
	msg.ReplyMarkup = *buyKeyboard()

	_, err := s.bot.Send(msg)
	return err
}
