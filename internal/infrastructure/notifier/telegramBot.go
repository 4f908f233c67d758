package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// TelegramBot pushes sweep results to an ops chat.
type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Run consumes sweep summaries from the channel. Quiet sweeps (nothing
// enqueued, nothing failed) are not reported.
func (b *TelegramBot) Run(ctx context.Context, summaries <-chan entity.SweepSummary) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case summary, ok := <-summaries:
			if !ok {
				return nil
			}
			if summary.Enqueued == 0 && summary.Failed == 0 {
				continue
			}
			if err := b.SendSummary(ctx, summary); err != nil {
				logger(ctx).Error("failed to send sweep summary", "error", err)
			}
		}
	}
}

func (b *TelegramBot) SendSummary(ctx context.Context, summary entity.SweepSummary) error {
	headline := "🧹 <b>Score sweep completed</b>"
	if summary.Failed > 0 {
		headline = "⚠️ <b>Score sweep had failures</b>"
	}

	text := fmt.Sprintf(
		"%s\n\n"+
			"📊 <b>Scanned:</b> %d\n"+
			"📤 <b>Enqueued:</b> %d\n"+
			"⏭ <b>Skipped:</b> %d\n"+
			"❌ <b>Failed:</b> %d\n"+
			"⏱ <b>Took:</b> %s",
		headline,
		summary.Scanned,
		summary.Enqueued,
		summary.Skipped,
		summary.Failed,
		summary.Finished.Sub(summary.Started).Round(time.Millisecond),
	)

	msg := tu.Message(
		tu.ID(b.chatID),
		text,
	).WithParseMode(telego.ModeHTML)

	_, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}
