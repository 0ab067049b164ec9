// Package keyboard builds reply and inline markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button bound to a callback key and payload.
type InlineBtn struct {
	Text    string
	Unique  string
	Payload string
}

// Remove hides any reply keyboard.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Reply builds a resized reply keyboard from rows of labels.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	out := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		btns := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			btns = append(btns, markup.Text(label))
		}
		out = append(out, markup.Row(btns...))
	}
	markup.Reply(out...)
	return markup
}

// ContactRequest builds a one-time keyboard with a single share-contact button.
func ContactRequest(label string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact(label)))
	return markup
}

// Inline builds an inline keyboard from rows of buttons.
func Inline(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			r = append(r, *markup.Data(b.Text, b.Unique, b.Payload).Inline())
		}
		kb = append(kb, r)
	}
	markup.InlineKeyboard = kb
	return markup
}

// Single builds an inline keyboard holding one button.
func Single(b InlineBtn) *tele.ReplyMarkup {
	return Inline([]InlineBtn{b})
}

// Chunk splits labels into rows of at most n.
func Chunk(labels []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	rows := make([][]string, 0, (len(labels)+n-1)/n)
	for start := 0; start < len(labels); start += n {
		end := min(start+n, len(labels))
		rows = append(rows, labels[start:end])
	}
	return rows
}

// HasMarkup reports whether m would render any keyboard change.
func HasMarkup(m *tele.ReplyMarkup) bool {
	if m == nil {
		return false
	}
	return len(m.ReplyKeyboard) > 0 || len(m.InlineKeyboard) > 0 || m.RemoveKeyboard
}
