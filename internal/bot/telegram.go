// Package bot exposes the agent router to operators over Telegram.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/damoang/angple-editorial/internal/persona"
	"github.com/damoang/angple-editorial/internal/service"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegram 메시지 길이 제한
const maxMessageRunes = 4000

// Router is the slice of the agent router the bot needs
type Router interface {
	Dispatch(ctx context.Context, personaKey, command string) service.Reply
	DispatchGroup(ctx context.Context, command string) []service.Turn
	Ping(ctx context.Context, class string) service.PingResult
	Personas() []persona.Persona
}

// Command is a parsed operator message
type Command struct {
	Name    string // ask, group, ping, personas, help
	Persona string
	Text    string
}

// ParseCommand turns a chat message into a Command.
// Free text goes to the default persona. The first /ask token is taken as a
// persona key only when isPersona knows it; otherwise the whole text is kept.
func ParseCommand(text string, isPersona func(key string) bool) Command {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{Name: "ask", Persona: persona.DefaultKey, Text: text}
	}

	name, rest, _ := strings.Cut(text[1:], " ")
	// /ask@editorial_bot 형식
	name, _, _ = strings.Cut(strings.ToLower(name), "@")
	rest = strings.TrimSpace(rest)

	switch name {
	case "ask":
		key, body, _ := strings.Cut(rest, " ")
		key = strings.ToLower(key)
		if key == "" || isPersona == nil || !isPersona(key) {
			return Command{Name: "ask", Persona: persona.DefaultKey, Text: rest}
		}
		return Command{Name: "ask", Persona: key, Text: strings.TrimSpace(body)}
	case "group":
		return Command{Name: "group", Text: rest}
	case "ping":
		return Command{Name: "ping", Text: strings.ToLower(rest)}
	case "personas":
		return Command{Name: "personas"}
	default:
		return Command{Name: "help"}
	}
}

// PersonaKeys returns a lookup over the given personas' keys
func PersonaKeys(list []persona.Persona) func(key string) bool {
	keys := make(map[string]bool, len(list))
	for _, p := range list {
		keys[p.Key] = true
	}
	return func(key string) bool { return keys[key] }
}

// Bot is the operator chat surface
type Bot struct {
	api     *tgbotapi.BotAPI
	router  Router
	allowed map[int64]bool
	log     zerolog.Logger
}

// New connects to Telegram. An empty allow list accepts every chat.
func New(token string, router Router, allowedChatIDs []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return newBot(api, router, allowedChatIDs), nil
}

func newBot(api *tgbotapi.BotAPI, router Router, allowedChatIDs []int64) *Bot {
	allowed := make(map[int64]bool, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = true
	}
	return &Bot{
		api:     api,
		router:  router,
		allowed: allowed,
		log:     pkglogger.WithComponent("telegram"),
	}
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info().Str("username", b.api.Self.UserName).Msg("telegram bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			chatID := update.Message.Chat.ID
			if !b.Allowed(chatID) {
				b.log.Warn().Int64("chat_id", chatID).Msg("message from unlisted chat ignored")
				continue
			}
			go b.answer(ctx, chatID, update.Message.MessageID, update.Message.Text)
		}
	}
}

// Allowed reports whether a chat may talk to the bot
func (b *Bot) Allowed(chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[chatID]
}

func (b *Bot) answer(ctx context.Context, chatID int64, replyTo int, text string) {
	reply := Respond(ctx, b.router, ParseCommand(text, PersonaKeys(b.router.Personas())))

	msg := tgbotapi.NewMessage(chatID, truncate(reply, maxMessageRunes))
	msg.ReplyToMessageID = replyTo
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}

// Respond runs a command against the router and renders the chat reply
func Respond(ctx context.Context, router Router, cmd Command) string {
	switch cmd.Name {
	case "ask":
		if cmd.Text == "" {
			return usage
		}
		r := router.Dispatch(ctx, cmd.Persona, cmd.Text)
		return fmt.Sprintf("[%s]\n%s", r.DisplayName, r.Text)

	case "group":
		if cmd.Text == "" {
			return usage
		}
		var sb strings.Builder
		for i, t := range router.DispatchGroup(ctx, cmd.Text) {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "[%s]\n%s", t.DisplayName, t.Reply)
		}
		return sb.String()

	case "ping":
		if cmd.Text == "" {
			return usage
		}
		res := router.Ping(ctx, cmd.Text)
		if !res.Online {
			return fmt.Sprintf("%s: offline (%s)", res.Class, res.Error)
		}
		return fmt.Sprintf("%s: online, %d models, %dms", res.Class, len(res.Models), res.LatencyMS)

	case "personas":
		var sb strings.Builder
		for _, p := range router.Personas() {
			fmt.Fprintf(&sb, "%s - %s (%s)\n", p.Key, p.DisplayName, p.Role)
		}
		return strings.TrimSpace(sb.String())
	}
	return usage
}

const usage = `Commands:
/ask <persona> <text>
/group <text>
/ping <proxy|gemini>
/personas
Plain text goes to the managing editor.`

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-3]) + "..."
}
