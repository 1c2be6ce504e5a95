package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feeder_control"
	"feeder_control/internal/logger"
)

// StatusSource supplies the live snapshot for the /status command.
type StatusSource interface {
	Status() feeder_control.Status
}

// FeedStopper aborts the running cycle for the /stop command.
type FeedStopper interface {
	Stop(ctx context.Context) error
}

// Telegram sends feeding notifications to a fixed chat and answers a small
// command set from allow-listed users.
type Telegram struct {
	api          *tgbotapi.BotAPI
	chatID       int64
	allowedUsers map[string]struct{}
	status       StatusSource
	stopper      FeedStopper
	log          *logger.Logger
}

// NewTelegram authorizes the bot and returns a notifier bound to chatID.
func NewTelegram(token string, chatID int64, allowedUsers []string, status StatusSource, stopper FeedStopper, log *logger.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	allowed := make(map[string]struct{}, len(allowedUsers))
	for _, u := range allowedUsers {
		allowed[strings.TrimPrefix(strings.TrimSpace(u), "@")] = struct{}{}
	}

	log.Infow("telegram bot authorized", "username", api.Self.UserName)

	return &Telegram{
		api:          api,
		chatID:       chatID,
		allowedUsers: allowed,
		status:       status,
		stopper:      stopper,
		log:          log,
	}, nil
}

// FeedingComplete announces a successfully finished cycle.
func (t *Telegram) FeedingComplete(rec feeder_control.FeedRecord) {
	t.send(formatComplete(rec))
}

// Alarm announces a cycle aborted by the safety alarm.
func (t *Telegram) Alarm(rec feeder_control.FeedRecord) {
	t.send(formatAlarm(rec))
}

// Warning forwards a non-fatal condition from the controller.
func (t *Telegram) Warning(msg string) {
	t.send("⚠️ " + msg)
}

// DailySummary reports all cycles of the given day.
func (t *Telegram) DailySummary(day time.Time, recs []feeder_control.FeedRecord) {
	t.send(formatSummary(day, recs))
}

// Listen answers incoming commands until ctx is canceled. Run in its own
// goroutine from main().
func (t *Telegram) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			t.handleCommand(ctx, update.Message)
		}
	}
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if !t.userAllowed(msg.From) {
		t.log.Warnw("telegram command from unknown user", "user", msg.From.UserName, "command", msg.Command())
		return
	}

	switch msg.Command() {
	case "start", "help":
		t.send("👋 Welcome to Weight Feeder Control!\n\n" +
			"/status - System status\n" +
			"/stop - Stop current feeding")
	case "status":
		t.send(formatStatus(t.status.Status()))
	case "stop":
		if err := t.stopper.Stop(ctx); err != nil {
			t.send("❌ Stop failed: " + err.Error())
			return
		}
		t.send("🛑 Feeding stopped")
	default:
		t.send("Unknown command. Try /status or /stop.")
	}
}

func (t *Telegram) userAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if len(t.allowedUsers) == 0 {
		return true
	}
	_, ok := t.allowedUsers[from.UserName]
	return ok
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		t.log.Errorw("telegram send", "err", err)
	}
}

func formatComplete(rec feeder_control.FeedRecord) string {
	return fmt.Sprintf(
		"✅ *Feeding Complete*\n\n"+
			"Cycle: %d\n"+
			"Dispensed: %.2f lbs\n"+
			"Duration: %d seconds",
		rec.FeedCycle+1,
		rec.ActualWeight,
		rec.DurationSec,
	)
}

func formatAlarm(rec feeder_control.FeedRecord) string {
	return fmt.Sprintf(
		"🚨 *FEEDING ALARM*\n\n"+
			"Feed Cycle: %d\n"+
			"Target: %.2f lbs\n"+
			"Actual: %.2f lbs\n"+
			"Reason: %s",
		rec.FeedCycle+1,
		rec.TargetWeight,
		rec.ActualWeight,
		rec.AlarmReason,
	)
}

func formatSummary(day time.Time, recs []feeder_control.FeedRecord) string {
	var b strings.Builder
	b.WriteString("📊 *Daily Feeding Summary*\n")
	b.WriteString(day.Format("2006-01-02"))
	b.WriteString("\n\n")

	var total float64
	alarms := 0
	for _, rec := range recs {
		total += rec.ActualWeight
		fmt.Fprintf(&b, "Cycle %d: %.2f lbs", rec.FeedCycle+1, rec.ActualWeight)
		if rec.Alarm {
			b.WriteString(" ⚠️")
			alarms++
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nTotal: %.2f lbs\nAlarms: %d", total, alarms)
	return b.String()
}

func formatStatus(st feeder_control.Status) string {
	return fmt.Sprintf(
		"📈 *System Status*\n\n"+
			"Stage: %s\n"+
			"Bin Weights:\n"+
			"  A: %.2f lbs\n"+
			"  B: %.2f lbs\n"+
			"  C: %.2f lbs\n"+
			"  D: %.2f lbs\n"+
			"Dispensed: %.2f lbs\n"+
			"Auger: %s\n"+
			"Chain: %s\n"+
			"Scale: %s",
		st.Stage,
		st.BinWeights[0],
		st.BinWeights[1],
		st.BinWeights[2],
		st.BinWeights[3],
		st.WeightDispensed,
		onOff(st.AugerRunning),
		onOff(st.ChainRunning),
		connState(st.ScaleConnected),
	)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func connState(b bool) string {
	if b {
		return "Connected"
	}
	return "Disconnected"
}
