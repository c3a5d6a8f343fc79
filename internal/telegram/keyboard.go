package telegram

import (
	tgmodels "github.com/go-telegram/bot/models"
)

// DefaultPairs is the instrument menu offered to approved users: majors,
// a few crosses and the liquid crypto pairs.
var DefaultPairs = []string{
	"EURUSD", "GBPUSD",
	"USDJPY", "AUDUSD",
	"USDCHF", "EURGBP",
	"BTCUSD", "ETHUSD",
}

// OTCPairs are the over-the-counter variants offered outside market hours.
var OTCPairs = []string{
	"EURUSD-OTC", "GBPUSD-OTC",
	"USDJPY-OTC", "AUDCAD-OTC",
}

var languageNames = map[string]string{
	"tg": "🇹🇯 Тоҷикӣ",
	"ru": "🇷🇺 Русский",
	"uz": "🇺🇿 O'zbekcha",
	"kk": "🇰🇿 Қазақша",
	"en": "🇬🇧 English",
}

// PairKeyboard builds the two-column instrument picker. Pair buttons carry
// "pair_<SYMBOL>" callback data.
func PairKeyboard(pairs []string) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton
	var row []tgmodels.InlineKeyboardButton

	for _, pair := range pairs {
		row = append(row, tgmodels.InlineKeyboardButton{
			Text:         "💱 " + pair,
			CallbackData: "pair_" + pair,
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "📱 OTC", CallbackData: "otc_pairs"},
		{Text: "🔄 Language / Забон", CallbackData: "change_language"},
	})

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// LanguageKeyboard builds the language picker, two options per row.
// Buttons carry "lang_<code>" callback data.
func LanguageKeyboard() *tgmodels.InlineKeyboardMarkup {
	codes := SupportedLanguages()

	var rows [][]tgmodels.InlineKeyboardButton
	var row []tgmodels.InlineKeyboardButton
	for _, code := range codes {
		row = append(row, tgmodels.InlineKeyboardButton{
			Text:         languageNames[code],
			CallbackData: "lang_" + code,
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}
