package telegram

import (
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/domain"
)

// Error codes reported to the administrator
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrDatabaseError    = "DATABASE_ERROR"
	ErrUpstreamError    = "UPSTREAM_ERROR"
	ErrPermissionDenied = "PERMISSION_DENIED"
	ErrNotFoundError    = "NOT_FOUND"
	ErrConflictError    = "CONFLICT"
	ErrUnknownError     = "UNKNOWN_ERROR"
)

// BotError carries a code for the report and a message for the user
type BotError struct {
	Code        string
	Message     string
	UserMessage string
	Details     string
}

func (e *BotError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

func NewBotError(code, message, userMessage, details string) *BotError {
	return &BotError{
		Code:        code,
		Message:     message,
		UserMessage: userMessage,
		Details:     details,
	}
}

// reportable errors are the ones the administrator should hear about
func (e *BotError) reportable() bool {
	switch e.Code {
	case ErrDatabaseError, ErrUpstreamError, ErrUnknownError:
		return true
	}
	return false
}

// toBotError maps core errors onto user notices. NotFound never says why.
func toBotError(err error) *BotError {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	details := err.Error()
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return ErrPermission(details)
	case errors.Is(err, domain.ErrBlocked):
		return NewBotError(ErrConflictError, "User is blocked", "🚫 You are blocked from using this bot.", details)
	case errors.Is(err, domain.ErrPendingPayment):
		return NewBotError(ErrConflictError, "Payment already pending",
			"⚠️ You already have a payment under review. Please wait for the administrator.", details)
	case errors.Is(err, domain.ErrNameTaken):
		return NewBotError(ErrConflictError, "Name already used",
			"⚠️ This name is already used. Please choose another one:", details)
	case errors.Is(err, domain.ErrTestUsed):
		return NewBotError(ErrConflictError, "Trial already used",
			"🧪 You have already received a free trial. Please buy a service to continue:", details)
	case errors.Is(err, domain.ErrBadName):
		return ErrInvalidInputf("⚠️ Please use English letters and digits only:", "%s", details)
	case errors.Is(err, domain.ErrBadIP):
		return ErrInvalidInputf("⚠️ This is not a qualifying IP. Please enter a valid IP and try again.", "%s", details)
	case errors.Is(err, domain.ErrNoReceipt):
		return ErrInvalidInputf("⚠️ Please send the payment receipt as an image.", "%s", details)
	case errors.Is(err, domain.ErrNoReason):
		return ErrInvalidInputf("📝 The reason cannot be empty. Open the decision again and type a reason.", "%s", details)
	case errors.Is(err, domain.ErrValidation):
		return ErrInvalidInputf("⚠️ Invalid input. Please try again.", "%s", details)
	case errors.Is(err, domain.ErrNotFound):
		return NewBotError(ErrNotFoundError, "Not found", "🚫 Service or payment not found.", details)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return ErrUpstreamf("%s", details)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return ErrDatabasef("%s", details)
	}
	return NewBotError(ErrUnknownError, "Unknown error occurred",
		"⚠️ An unexpected error occurred. Please try again.", details)
}

// handleError replies with the mapped notice and reports server-side failures.
func (s *Service) handleError(chatID int64, err error) {
	s.handleErrorWithKeyboard(chatID, err, nil)
}

func (s *Service) handleErrorWithKeyboard(chatID int64, err error, keyboard *tgbotapi.InlineKeyboardMarkup) {
	botErr := toBotError(err)
	if botErr.reportable() {
		slog.Error("Bot error occurred", "chat_id", chatID, "code", botErr.Code, "error", err)
		s.sendErrorReport(chatID, botErr)
	} else {
		slog.Info("Request refused", "chat_id", chatID, "code", botErr.Code, "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, botErr.UserMessage)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	s.send(msg)
}

func (s *Service) sendErrorReport(chatID int64, botErr *BotError) {
	if s.cfg.AdminID == 0 || chatID == s.cfg.AdminID {
		return
	}

	report := fmt.Sprintf(`🚨 Bot error:

Code: %s
Message: %s
Details: %s

Shown to user %d: %s`,
		botErr.Code,
		botErr.Message,
		botErr.Details,
		chatID,
		botErr.UserMessage,
	)
	s.send(tgbotapi.NewMessage(s.cfg.AdminID, report))
}

func ErrInvalidInputf(userMessage, details string, args ...interface{}) *BotError {
	return NewBotError(
		ErrInvalidInput,
		"Invalid input provided",
		userMessage,
		fmt.Sprintf(details, args...),
	)
}

func ErrDatabasef(details string, args ...interface{}) *BotError {
	return NewBotError(
		ErrDatabaseError,
		"Database operation failed",
		"⚠️ Could not reach the server. Please try again.",
		fmt.Sprintf(details, args...),
	)
}

func ErrUpstreamf(details string, args ...interface{}) *BotError {
	return NewBotError(
		ErrUpstreamError,
		"IP validation failed",
		"⚠️ Could not verify the IP right now (server error). Please try again later.",
		fmt.Sprintf(details, args...),
	)
}

func ErrPermission(details string) *BotError {
	return NewBotError(
		ErrPermissionDenied,
		"Permission denied",
		"🚫 Unauthorized access!",
		details,
	)
}
