package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dnsbot/internal/domain"
)

const welcomeText = "🌐 Welcome to the DNS service bot!\nPlease choose an option: 🚀"

func (s *Service) mainMenuKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("📋 My services", CallbackMyServices.String())},
		{tgbotapi.NewInlineKeyboardButtonData("🛒 Buy new service", CallbackBuyNew.String())},
		{tgbotapi.NewInlineKeyboardButtonData("🧪 Free trial", CallbackGetTest.String())},
		{tgbotapi.NewInlineKeyboardButtonData("🌐 DNS settings", CallbackDNS.String())},
		{tgbotapi.NewInlineKeyboardButtonData("📚 Tutorials", CallbackTutorials.String())},
		{tgbotapi.NewInlineKeyboardButtonData("❓ FAQ", CallbackFAQ.String())},
	}
	if s.cfg.IsAdmin(userID) {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📊 User stats", CallbackStats.String()),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (s *Service) sendMainMenu(chatID, userID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = s.mainMenuKeyboard(userID)
	s.send(msg)
}

func (s *Service) showMainMenu(cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")
	kb := s.mainMenuKeyboard(cb.From.ID)
	s.show(cb, welcomeText, &kb)
}

func backKeyboard(data string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", data)),
	)
	return &kb
}

func buyKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 Buy new service", CallbackBuyNew.String())),
	)
	return &kb
}

var durationLabels = map[int]string{
	30: "1 month",
	60: "2 months",
	90: "3 months",
}

func durationKeyboard(prefix CallbackPrefix, back string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, days := range domain.Durations {
		price, _ := domain.Price(days)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("💳 %s | %s Toman", durationLabels[days], formatPrice(price)),
			prefix.WithID(days),
		)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", back)))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// formatPrice groups thousands with commas.
func formatPrice(p int) string {
	s := strconv.Itoa(p)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Service) handleDNS(cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")
	text := fmt.Sprintf(`🌐 DNS servers

Primary: %s
Secondary: %s

Register your IP on a service first, then set these DNS servers on your device or router.`,
		s.cfg.DNS1, s.cfg.DNS2)
	s.show(cb, text, backKeyboard(CallbackMainMenu.String()))
}

func (s *Service) handleFAQ(cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")
	text := `❓ Frequently asked questions

• Why register an IP?
The DNS only answers registered IPs. Register the IP you play from.

• My IP changed, what now?
Open the service and register the new IP. The old one is replaced.

• Does it work with a VPN?
No. Turn the VPN off before registering and while using the DNS.

• What happens after expiry?
The service stops and its IP is cleared. Renew it from the service page.`
	s.show(cb, text, backKeyboard(CallbackMainMenu.String()))
}

func (s *Service) handleTutorials(cb *tgbotapi.CallbackQuery) {
	s.answerCallback(cb.ID, "")
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📱 Android", CallbackTutorialAndroid.String())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🍎 iOS", CallbackTutorialIOS.String())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💻 Windows", CallbackTutorialWindows.String())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackMainMenu.String())),
	)
	s.show(cb, "📚 Choose your platform for the DNS setup guide:", &kb)
}

type tutorial struct {
	title     string
	manual    string
	app       string
	appLabel  string
	appURL    string
	footnotes string
}

var tutorials = map[CallbackData]tutorial{
	CallbackTutorialAndroid: {
		title: "📱 DNS setup on Android",
		manual: `1. Open Settings > Wi-Fi and long-press your network (or Modify Network).
2. Open Advanced and switch IP settings from DHCP to Static.
3. Replace the DNS entries with:
   DNS1: %[1]s
   DNS2: %[2]s
4. Save.`,
		app: `1. Install DNS Changer from Google Play.
2. Enter DNS1 %[1]s and DNS2 %[2]s.
3. Tap connect and allow the VPN permission (it only changes DNS).`,
		appLabel:  "📥 Download DNS Changer",
		appURL:    "https://play.google.com/store/apps/details?id=com.burakgon.dnschanger",
		footnotes: "If something breaks, switch back to DHCP.",
	},
	CallbackTutorialIOS: {
		title: "🍎 DNS setup on iOS",
		manual: `1. Open Settings > Wi-Fi and tap (i) next to your network.
2. Open Configure DNS and choose Manual.
3. Remove the old servers and add:
   DNS1: %[1]s
   DNS2: %[2]s
4. Save.`,
		app: `1. Install DNS Changer from the App Store.
2. Enter DNS1 %[1]s and DNS2 %[2]s.
3. Tap connect.`,
		appLabel:  "📥 Download DNS Changer",
		appURL:    "https://apps.apple.com/us/app/dns-ip-changer-secure-vpn/id1562292463",
		footnotes: "If something breaks, set Configure DNS back to Automatic.",
	},
	CallbackTutorialWindows: {
		title: "💻 DNS setup on Windows",
		manual: `1. Press Win+R, type control and press Enter.
2. Open Network and Sharing Center > Change adapter settings.
3. Right-click your connection > Properties > Internet Protocol Version 4 (TCP/IPv4) > Properties.
4. Choose "Use the following DNS server addresses":
   Preferred: %[1]s
   Alternate: %[2]s
5. Click OK on every window.`,
		app: `1. Download DNS Jumper and extract the ZIP.
2. Run DnsJumper.exe and pick your network adapter.
3. Under Custom enter %[1]s and %[2]s, then click Apply DNS.`,
		appLabel:  "📥 Download DNS Jumper",
		appURL:    "https://www.sordum.org/files/downloads.php?dns-jumper",
		footnotes: "Restore Original DNS in DNS Jumper undoes the change.",
	},
}

func (s *Service) handleTutorial(cb *tgbotapi.CallbackQuery, platform CallbackData) {
	s.answerCallback(cb.ID, "")

	t, ok := tutorials[platform]
	if !ok {
		s.handleTutorials(cb)
		return
	}

	text := fmt.Sprintf("%s\n\n🔧 Manual setup\n%s\n\n📲 With an app\n%s\n\n📌 %s\nAfter your service ends, set DNS back to automatic. If your IP changes, register the new one.",
		t.title,
		fmt.Sprintf(t.manual, s.cfg.DNS1, s.cfg.DNS2),
		fmt.Sprintf(t.app, s.cfg.DNS1, s.cfg.DNS2),
		t.footnotes,
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(t.appLabel, t.appURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CallbackTutorials.String())),
	)
	s.show(cb, text, &kb)
}

func (s *Service) handleStats(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !s.cfg.IsAdmin(cb.From.ID) {
		s.answerCallback(cb.ID, "")
		s.handleError(chatOf(cb), domain.ErrUnauthorized)
		return
	}
	s.answerCallback(cb.ID, "")

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.handleError(chatOf(cb), err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Bot statistics\n\n👥 Users: %d\n🧪 Trial services: %d\n", stats.Users, stats.TestServices)
	for _, days := range domain.Durations {
		fmt.Fprintf(&b, "💳 %s services: %d\n", durationLabels[days], stats.ByDuration[days])
	}
	s.show(cb, b.String(), backKeyboard(CallbackMainMenu.String()))
}
