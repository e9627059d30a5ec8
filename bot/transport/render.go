package transport

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/bot/dispatch"
	tghelpers "github.com/m3rciful/tubebot/core/telegram/helpers"
	"github.com/m3rciful/tubebot/core/telegram/keyboard"
)

// markupFor converts dispatcher buttons into an inline keyboard. Callback payloads of the
// form "key|data" become the telebot unique key and data, so presses route by key.
func markupFor(rows [][]dispatch.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, keyboard.InlineBtn{Text: b.Text, URL: b.URL})
				continue
			}
			unique, data, _ := strings.Cut(b.Data, "|")
			btns = append(btns, keyboard.InlineBtn{Text: b.Text, Unique: unique, Data: data})
		}
		out = append(out, btns)
	}
	return keyboard.InlineButtonsRows(out...)
}

func parseMode(r dispatch.Reply) tele.ParseMode {
	if r.Markdown {
		return tele.ModeMarkdown
	}
	return tele.ModeDefault
}

// deliver sends replies in order through the keyed sender queue.
func deliver(c tele.Context, replies []dispatch.Reply) error {
	for _, r := range replies {
		markup := markupFor(r.Buttons)
		var err error
		if r.Edit {
			err = tghelpers.EditOrSend(c, r.Text, parseMode(r), markup)
		} else {
			err = tghelpers.SendText(c, r.Text, &tele.SendOptions{ParseMode: parseMode(r), ReplyMarkup: markup})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
