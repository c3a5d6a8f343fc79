package telegram

import (
	"golang.org/x/text/language"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

// Messages holds the localized fragments the formatter assembles. The
// catalogs are deliberately small; everything structural lives in the
// AnalysisResult, not in these strings.
type Messages struct {
	PairHeader   string
	CurrentPrice string
	Timeframe    string
	Change       string
	Expiration   string
	Confidence   string
	Minutes      string
	Signals      map[models.Signal]string
	Analyzing    string
	NoData       string
	TryAgain     string
	NotApproved  string
	Welcome      string
}

// DefaultLanguage is the bot's historical default audience language.
const DefaultLanguage = "tg"

var catalogs = map[string]Messages{
	"en": {
		PairHeader:   "Pair: %s",
		CurrentPrice: "Current price",
		Timeframe:    "Timeframe: %d min",
		Change:       "Change",
		Expiration:   "Expiration",
		Confidence:   "Confidence",
		Minutes:      "min",
		Signals: map[models.Signal]string{
			models.SignalBuy:     "🟢 BUY ⬆️",
			models.SignalSell:    "🔴 SELL ⬇️",
			models.SignalNeutral: "⚪ NEUTRAL ➡️",
		},
		Analyzing:   "⏳ Analyzing the market...",
		NoData:      "No data available for this pair right now.",
		TryAgain:    "Analysis failed, please try again.",
		NotApproved: "Your account is awaiting approval.",
		Welcome:     "Welcome! Choose a currency pair to get a signal.",
	},
	"ru": {
		PairHeader:   "Пара: %s",
		CurrentPrice: "Текущая цена",
		Timeframe:    "Таймфрейм: %d мин",
		Change:       "Изменение",
		Expiration:   "Экспирация",
		Confidence:   "Уверенность",
		Minutes:      "мин",
		Signals: map[models.Signal]string{
			models.SignalBuy:     "🟢 ПОКУПКА ⬆️",
			models.SignalSell:    "🔴 ПРОДАЖА ⬇️",
			models.SignalNeutral: "⚪ НЕЙТРАЛЬНО ➡️",
		},
		Analyzing:   "⏳ Анализируем рынок...",
		NoData:      "Нет данных по этой паре.",
		TryAgain:    "Анализ не удался, попробуйте ещё раз.",
		NotApproved: "Ваш аккаунт ожидает одобрения.",
		Welcome:     "Добро пожаловать! Выберите валютную пару.",
	},
	"tg": {
		PairHeader:   "Ҷуфт: %s",
		CurrentPrice: "Нархи ҷорӣ",
		Timeframe:    "Вақт: %d дақ",
		Change:       "Тағйирот",
		Expiration:   "Мӯҳлат",
		Confidence:   "Боварӣ",
		Minutes:      "дақ",
		Signals: map[models.Signal]string{
			models.SignalBuy:     "🟢 ХАРИД ⬆️",
			models.SignalSell:    "🔴 ФУРӮШ ⬇️",
			models.SignalNeutral: "⚪ БЕТАРАФ ➡️",
		},
		Analyzing:   "⏳ Таҳлили бозор...",
		NoData:      "Барои ин ҷуфт маълумот нест.",
		TryAgain:    "Таҳлил нашуд, боз кӯшиш кунед.",
		NotApproved: "Ҳисоби шумо дар интизори тасдиқ аст.",
		Welcome:     "Хуш омадед! Ҷуфти асъорро интихоб кунед.",
	},
	"uz": {
		PairHeader:   "Juftlik: %s",
		CurrentPrice: "Joriy narx",
		Timeframe:    "Vaqt oralig'i: %d daq",
		Change:       "O'zgarish",
		Expiration:   "Muddati",
		Confidence:   "Ishonch",
		Minutes:      "daq",
		Signals: map[models.Signal]string{
			models.SignalBuy:     "🟢 SOTIB OLISH ⬆️",
			models.SignalSell:    "🔴 SOTISH ⬇️",
			models.SignalNeutral: "⚪ NEYTRAL ➡️",
		},
		Analyzing:   "⏳ Bozor tahlil qilinmoqda...",
		NoData:      "Bu juftlik uchun ma'lumot yo'q.",
		TryAgain:    "Tahlil amalga oshmadi, qayta urinib ko'ring.",
		NotApproved: "Hisobingiz tasdiqlanishini kutmoqda.",
		Welcome:     "Xush kelibsiz! Valyuta juftligini tanlang.",
	},
	"kk": {
		PairHeader:   "Жұп: %s",
		CurrentPrice: "Ағымдағы баға",
		Timeframe:    "Уақыт аралығы: %d мин",
		Change:       "Өзгеріс",
		Expiration:   "Мерзімі",
		Confidence:   "Сенімділік",
		Minutes:      "мин",
		Signals: map[models.Signal]string{
			models.SignalBuy:     "🟢 САТЫП АЛУ ⬆️",
			models.SignalSell:    "🔴 САТУ ⬇️",
			models.SignalNeutral: "⚪ БЕЙТАРАП ➡️",
		},
		Analyzing:   "⏳ Нарық талдануда...",
		NoData:      "Бұл жұп бойынша деректер жоқ.",
		TryAgain:    "Талдау сәтсіз аяқталды, қайталап көріңіз.",
		NotApproved: "Тіркелгіңіз мақұлдауды күтуде.",
		Welcome:     "Қош келдіңіз! Валюта жұбын таңдаңыз.",
	},
}

var supportedTags = []language.Tag{
	language.Make("tg"), // first entry is the matcher fallback
	language.Russian,
	language.English,
	language.Uzbek,
	language.Kazakh,
}

var localeMatcher = language.NewMatcher(supportedTags)

var tagToCatalog = map[language.Tag]string{
	supportedTags[0]: "tg",
	language.Russian: "ru",
	language.English: "en",
	language.Uzbek:   "uz",
	language.Kazakh:  "kk",
}

// ResolveLanguage maps an arbitrary BCP-47-ish code (Telegram sends things
// like "ru-RU") to one of the supported catalogs.
func ResolveLanguage(code string) string {
	if _, ok := catalogs[code]; ok {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}
	_, index, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage
	}
	if name, ok := tagToCatalog[supportedTags[index]]; ok {
		return name
	}
	return DefaultLanguage
}

// MessagesFor returns the catalog for a resolved language code.
func MessagesFor(lang string) Messages {
	if m, ok := catalogs[ResolveLanguage(lang)]; ok {
		return m
	}
	return catalogs[DefaultLanguage]
}

// SupportedLanguages lists the catalog codes in display order.
func SupportedLanguages() []string {
	return []string{"tg", "ru", "uz", "kk", "en"}
}
