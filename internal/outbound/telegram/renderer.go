package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Renderer delivers outbound intents over the Telegram bot API. Interactive
// choices become inline keyboard buttons with the answer id as callback
// data.
type Renderer struct {
	bot *gotgbot.Bot
	log *slog.Logger
}

func New(apiKey string, log *slog.Logger) (*Renderer, error) {
	bot, err := gotgbot.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Renderer{
		bot: bot,
		log: log.With(sl.Module("outbound.telegram")),
	}, nil
}

func (r *Renderer) Render(_ context.Context, intent entity.OutboundIntent) error {
	chatID, err := strconv.ParseInt(intent.Recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram recipient %q: %w", intent.Recipient, err)
	}

	text := strings.Join(intent.TextParts(), "\n\n")
	if text == "" {
		return nil
	}

	var opts *gotgbot.SendMessageOpts
	if len(intent.Choices) > 0 {
		rows := make([][]gotgbot.InlineKeyboardButton, 0, len(intent.Choices))
		for _, choice := range intent.Choices {
			rows = append(rows, []gotgbot.InlineKeyboardButton{{
				Text:         choice.ExpectedInput,
				CallbackData: choice.ID,
			}})
		}
		opts = &gotgbot.SendMessageOpts{
			ReplyMarkup: gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows},
		}
	}

	if _, err = r.bot.SendMessage(chatID, text, opts); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	r.log.Debug("message sent", slog.Int64("chat_id", chatID), slog.String("node_id", intent.NodeID))
	return nil
}
