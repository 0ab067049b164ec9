package flows

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/telegram/keyboard"
)

func adminKeyboard() *tele.ReplyMarkup {
	kb := keyboard.Reply(
		[]string{LabelAddVideo, LabelViewUsers},
		[]string{LabelManageVideos},
	)
	kb.OneTimeKeyboard = true
	return kb
}

func phoneKeyboard() *tele.ReplyMarkup {
	return keyboard.ContactRequest(LabelSharePhone)
}

// videoKeyboard lays titles out two per row above a refresh button.
func videoKeyboard(videos []store.Video) *tele.ReplyMarkup {
	titles := make([]string, 0, len(videos))
	for _, v := range videos {
		titles = append(titles, v.Title)
	}
	rows := keyboard.Chunk(titles, 2)
	rows = append(rows, []string{LabelRefreshVideos})
	return keyboard.Reply(rows...)
}

func deleteUserButton(telegramID int64) *tele.ReplyMarkup {
	return keyboard.Single(keyboard.InlineBtn{
		Text:    LabelDeleteUser,
		Unique:  CallbackDeleteUser,
		Payload: strconv.FormatInt(telegramID, 10),
	})
}

func deleteVideoButton(videoID int64) *tele.ReplyMarkup {
	return keyboard.Single(keyboard.InlineBtn{
		Text:    LabelDeleteVideo,
		Unique:  CallbackDeleteVideo,
		Payload: strconv.FormatInt(videoID, 10),
	})
}
