package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/models"
)

// Telegram delivers rendered signals to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// SendSignal delivers a scoring-engine signal.
func (t *Telegram) SendSignal(ctx context.Context, signal *models.Signal) error {
	return t.send(ctx, formatSignal(signal))
}

// SendConsensus delivers an AI consensus result.
func (t *Telegram) SendConsensus(ctx context.Context, product string, result *models.ConsensusResult) error {
	return t.send(ctx, formatConsensus(product, result))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("failed to send telegram message")
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func signalEmoji(signalType string) string {
	switch signalType {
	case models.SignalStrongBuy:
		return "🟢🟢"
	case models.SignalBuy:
		return "🟢"
	case models.SignalStrongSell:
		return "🔴🔴"
	case models.SignalSell:
		return "🔴"
	}
	return "⚪"
}

func formatSignal(signal *models.Signal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%s %s</b> (strength %d/5, confidence %d%%)\n\n",
		signalEmoji(signal.Type), signal.Product, signal.Type, signal.Strength, signal.Confidence))
	sb.WriteString(fmt.Sprintf("Price: <b>%.2f</b> | Max pain: <b>%.2f</b>\n", signal.Price, signal.KeyLevels.MaxPain))

	if len(signal.KeyLevels.Resistance) > 0 {
		sb.WriteString("Resistance: ")
		sb.WriteString(formatLevels(signal.KeyLevels.Resistance))
		sb.WriteString("\n")
	}
	if len(signal.KeyLevels.Support) > 0 {
		sb.WriteString("Support: ")
		sb.WriteString(formatLevels(signal.KeyLevels.Support))
		sb.WriteString("\n")
	}

	if len(signal.BullishFactors) > 0 {
		sb.WriteString("\n<b>Bullish:</b>\n")
		for _, f := range signal.BullishFactors {
			sb.WriteString("• " + f + "\n")
		}
	}
	if len(signal.BearishFactors) > 0 {
		sb.WriteString("\n<b>Bearish:</b>\n")
		for _, f := range signal.BearishFactors {
			sb.WriteString("• " + f + "\n")
		}
	}
	return sb.String()
}

func formatLevels(levels []models.KeyLevel) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, fmt.Sprintf("%.0f", l.Strike))
	}
	return strings.Join(parts, " / ")
}

func formatConsensus(product string, result *models.ConsensusResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%s AI consensus: %s</b> (confidence %d%%, agreement %s)\n\n",
		signalEmoji(result.Recommendation), product, result.Recommendation, result.Confidence, result.Agreement))

	if result.EntryLow > 0 || result.EntryHigh > 0 {
		sb.WriteString(fmt.Sprintf("Entry: %.2f – %.2f\n", result.EntryLow, result.EntryHigh))
	}
	if result.StopLoss > 0 {
		sb.WriteString(fmt.Sprintf("Stop: %.2f\n", result.StopLoss))
	}
	for i, tp := range result.TakeProfits {
		sb.WriteString(fmt.Sprintf("TP%d: %.2f\n", i+1, tp))
	}

	sb.WriteString("\n<b>Votes:</b>\n")
	for _, p := range result.Predictions {
		sb.WriteString(fmt.Sprintf("• %s: %s (%.0f%%)\n", p.Provider, p.Recommendation, p.Confidence))
	}
	for _, f := range result.Failures {
		sb.WriteString(fmt.Sprintf("• %s: failed\n", f.Provider))
	}

	if len(result.Warnings) > 0 {
		sb.WriteString("\n<b>Warnings:</b>\n")
		for _, w := range result.Warnings {
			sb.WriteString("⚠️ " + w + "\n")
		}
	}
	return sb.String()
}
