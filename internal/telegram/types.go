package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a slash command understood by the bot
type Command string

const (
	CmdStart Command = "start"
	CmdMenu  Command = "menu"
	CmdHelp  Command = "help"
)

func (c Command) String() string {
	return string(c)
}

func (c Command) IsValid() bool {
	switch c {
	case CmdStart, CmdMenu, CmdHelp:
		return true
	}
	return false
}

// CallbackData is a bare callback token
type CallbackData string

const (
	CallbackMainMenu   CallbackData = "main_menu"
	CallbackMyServices CallbackData = "my_services"
	CallbackBuyNew     CallbackData = "buy_new_service"
	CallbackGetTest    CallbackData = "get_test"
	CallbackRandomName CallbackData = "random_name"
	CallbackStats      CallbackData = "stats"
	CallbackDNS        CallbackData = "dns_servers"
	CallbackFAQ        CallbackData = "faq"
	CallbackTutorials  CallbackData = "tutorials"

	CallbackTutorialAndroid CallbackData = "tutorial_android"
	CallbackTutorialIOS     CallbackData = "tutorial_ios"
	CallbackTutorialWindows CallbackData = "tutorial_windows"
)

func (c CallbackData) String() string {
	return string(c)
}

// CallbackPrefix is a callback token followed by an argument
type CallbackPrefix string

const (
	CallbackServiceInfo   CallbackPrefix = "service_info_"
	CallbackRegisterIP    CallbackPrefix = "register_ip_"
	CallbackManualIP      CallbackPrefix = "manual_ip_"
	CallbackRenewService  CallbackPrefix = "renew_service_"
	CallbackDuration      CallbackPrefix = "duration_"
	CallbackRenewDuration CallbackPrefix = "renew_duration_"
	CallbackApprove       CallbackPrefix = "approve_payment_"
	CallbackReject        CallbackPrefix = "reject_payment_"
	CallbackBlock         CallbackPrefix = "block_user_"
)

func (c CallbackPrefix) String() string {
	return string(c)
}

func (c CallbackPrefix) WithID(id interface{}) string {
	return string(c) + fmt.Sprintf("%v", id)
}

// Decision builds the token for a moderation button.
func (c CallbackPrefix) Decision(paymentID string, owner int64) string {
	return fmt.Sprintf("%s%s_%d", c, paymentID, owner)
}

// Arg returns the argument after the prefix.
func (c CallbackPrefix) Arg(data string) (string, bool) {
	if !strings.HasPrefix(data, string(c)) {
		return "", false
	}
	arg := strings.TrimPrefix(data, string(c))
	return arg, arg != ""
}

// Days parses a duration argument.
func (c CallbackPrefix) Days(data string) (int, bool) {
	arg, ok := c.Arg(data)
	if !ok {
		return 0, false
	}
	days, err := strconv.Atoi(arg)
	if err != nil {
		return 0, false
	}
	return days, true
}

// ParseDecision splits "<prefix><payment_id>_<owner>". Payment ids never contain '_'.
func (c CallbackPrefix) ParseDecision(data string) (paymentID string, owner int64, ok bool) {
	arg, ok := c.Arg(data)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndex(arg, "_")
	if i <= 0 || i == len(arg)-1 {
		return "", 0, false
	}
	owner, err := strconv.ParseInt(arg[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return arg[:i], owner, true
}
