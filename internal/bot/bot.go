package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"time-tracker/internal/model"
	"time-tracker/internal/service"
)

const recentEntriesLimit = 10

const helpText = `⏱ <b>Time tracker bot</b>

/entries — latest time entries
/running — timers that are still running
/stop &lt;id&gt; — stop a running timer now
/report — today's summary
/help — this message

Link your account from the web page ("Link Telegram") and send the /start command it shows.`

// Bot is the Telegram companion of the web application.
type Bot struct {
	api     *tgbotapi.BotAPI
	users   *service.UserService
	entries *service.TimeEntryService
	reports *service.ReportService
	loc     *time.Location
	now     func() time.Time
}

func New(token string, users *service.UserService, entries *service.TimeEntryService, reports *service.ReportService, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	if loc == nil {
		loc = time.UTC
	}
	return &Bot{
		api:     api,
		users:   users,
		entries: entries,
		reports: reports,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			log.Printf("handle message: %v", err)
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help for the list of commands.")
	}

	log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())

	if msg.Command() == "start" {
		return b.handleStart(ctx, msg)
	}
	if msg.Command() == "help" {
		return b.sendText(msg.Chat.ID, helpText)
	}

	user, err := b.users.FindByTelegramID(ctx, msg.From.ID)
	if errors.Is(err, service.ErrNotFound) {
		return b.sendText(msg.Chat.ID, "This chat is not linked yet. Use \"Link Telegram\" on the web page and send the /start command it shows.")
	}
	if err != nil {
		return err
	}

	switch msg.Command() {
	case "entries":
		return b.handleEntries(ctx, msg.Chat.ID, user)
	case "running":
		return b.handleRunning(ctx, msg.Chat.ID, user)
	case "stop":
		return b.handleStop(ctx, msg, user)
	case "report":
		return b.handleReport(ctx, msg.Chat.ID, user)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		return b.sendText(msg.Chat.ID, helpText)
	}
	user, err := b.users.LinkTelegram(ctx, code, msg.From.ID)
	if errors.Is(err, service.ErrNotFound) {
		return b.sendText(msg.Chat.ID, "That link code is unknown or already used. Request a new one on the web page.")
	}
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Linked to %s. Send /help to see what I can do.", html.EscapeString(user.Email)))
}

func (b *Bot) handleEntries(ctx context.Context, chatID int64, user *model.User) error {
	entries, err := b.entries.List(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(entries) > recentEntriesLimit {
		entries = entries[:recentEntriesLimit]
	}
	return b.sendText(chatID, formatEntries("🗂 <b>Latest entries</b>", entries, b.now(), b.loc))
}

func (b *Bot) handleRunning(ctx context.Context, chatID int64, user *model.User) error {
	entries, err := b.entries.Running(ctx, user.ID)
	if err != nil {
		return err
	}
	return b.sendText(chatID, formatEntries("▶️ <b>Running timers</b>", entries, b.now(), b.loc))
}

func (b *Bot) handleStop(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	entryID, err := parseEntryID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /stop &lt;id&gt;. Send /running to see the ids.")
	}

	entry, err := b.entries.Stop(ctx, user.ID, entryID, b.now())
	var verr *service.ValidationError
	switch {
	case err == nil:
		log.Printf("[info] timer stopped via bot entry=%d user=%d", entry.ID, user.ID)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("⏹ Stopped #%d after %s.", entry.ID, service.FormatDuration(entry.Duration(b.now()))))
	case errors.As(err, &verr):
		return b.sendText(msg.Chat.ID, html.EscapeString(verr.Fields[0].Message))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No time entry #%d of yours.", entryID))
	default:
		if sendErr := b.sendText(msg.Chat.ID, "An unexpected error occurred"); sendErr != nil {
			log.Printf("send error reply: %v", sendErr)
		}
		return err
	}
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, user *model.User) error {
	summary, err := b.reports.DailySummary(ctx, user.ID, b.now())
	if err != nil {
		return err
	}
	return b.sendText(chatID, summary)
}

// SendDailyReports pushes today's summary to every linked user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListLinked(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		if user.TelegramID == nil {
			continue
		}
		summary, err := b.reports.DailySummary(ctx, user.ID, now)
		if err != nil {
			log.Printf("build summary for user %d: %v", user.ID, err)
			continue
		}
		if err := b.sendText(*user.TelegramID, summary); err != nil {
			log.Printf("send summary to %d: %v", *user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func parseEntryID(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid entry id %q", raw)
	}
	return uint(id), nil
}

func formatEntries(header string, entries []model.TimeEntry, now time.Time, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	if len(entries) == 0 {
		sb.WriteString("— nothing here\n")
		return strings.TrimSpace(sb.String())
	}
	for _, entry := range entries {
		sb.WriteString(formatEntry(entry, now, loc))
	}
	return strings.TrimSpace(sb.String())
}

func formatEntry(entry model.TimeEntry, now time.Time, loc *time.Location) string {
	title, category := "", ""
	if entry.Task != nil {
		title = strings.TrimSpace(entry.Task.Title)
		if entry.Task.Category != nil {
			category = strings.TrimSpace(entry.Task.Category.Name)
		}
	}

	icon := "🟢"
	if entry.IsRunning() {
		icon = "⏳"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s #%d %s", icon, entry.ID, html.EscapeString(title)))
	if category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}

	start := entry.StartTime.In(loc)
	end := "running"
	if entry.EndTime != nil {
		end = entry.EndTime.In(loc).Format("15:04")
	}
	sb.WriteString(fmt.Sprintf("\n   %s %s–%s · %s\n",
		start.Format("2006-01-02"), start.Format("15:04"), end, service.FormatDuration(entry.Duration(now))))
	return sb.String()
}
