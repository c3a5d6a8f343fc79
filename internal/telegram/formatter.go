package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

// markdownV2Special is every character Telegram MarkdownV2 requires escaped
// outside of code spans.
var markdownV2Special = []string{
	"_", "*", "[", "]", "(", ")", "~", "`", ">", "#",
	"+", "-", "=", "|", "{", "}", ".", "!",
}

// EscapeMarkdown escapes text for Telegram MarkdownV2.
func EscapeMarkdown(text string) string {
	for _, ch := range markdownV2Special {
		text = strings.ReplaceAll(text, ch, "\\"+ch)
	}
	return text
}

// FormatSignalMessage renders an AnalysisResult into localized MarkdownV2.
// It is a pure function over its inputs: no clock reads, no side effects,
// so the same result and language always produce the same text.
func FormatSignalMessage(result *models.AnalysisResult, lang string) string {
	msgs := MessagesFor(lang)

	if result.Failed() {
		return EscapeMarkdown(msgs.TryAgain)
	}

	var parts []string
	parts = append(parts,
		"💎 "+EscapeMarkdown(fmt.Sprintf(msgs.PairHeader, result.Symbol)),
		"⌚ "+EscapeMarkdown(result.EvaluatedAt.Format("15:04:05")),
		fmt.Sprintf("💵 %s: `%s`\n", EscapeMarkdown(msgs.CurrentPrice), result.CurrentPrice.StringFixed(4)),
	)

	timeframes := make([]int, 0, len(result.Timeframes))
	for tf := range result.Timeframes {
		timeframes = append(timeframes, tf)
	}
	sort.Ints(timeframes)

	for _, tf := range timeframes {
		outcome := result.Timeframes[tf]
		if outcome.Result == nil {
			// Timeframes that failed to compute are omitted from the
			// rendered message; the result keeps the reason for the API.
			continue
		}
		parts = append(parts, formatTimeframe(tf, outcome.Result, msgs))
	}

	return strings.Join(parts, "\n")
}

func formatTimeframe(tf int, sr *models.SignalResult, msgs Messages) string {
	changeEmoji := "⚪"
	switch {
	case sr.ChangePct > 0:
		changeEmoji = "🟢"
	case sr.ChangePct < 0:
		changeEmoji = "🔴"
	}

	bbEmoji := "↔️"
	switch sr.Indicators.BBPosition {
	case models.BBOversold:
		bbEmoji = "↘️"
	case models.BBOverbought:
		bbEmoji = "↗️"
	}

	change := sr.ChangePct
	if change < 0 {
		change = -change
	}

	return fmt.Sprintf(`
📊 %s
%s

%s _%s:_ `+"`%.2f%%`"+`
⏰ %s: `+"`%d %s`"+`
📈 %s: `+"`%d%%`"+`

📉 RSI: `+"`%.1f`"+`
📊 MACD: `+"`%.4f`"+`
%s BB: `+"`%s`"+`
`,
		EscapeMarkdown(fmt.Sprintf(msgs.Timeframe, tf)),
		msgs.Signals[sr.Signal],
		changeEmoji, EscapeMarkdown(msgs.Change), change,
		EscapeMarkdown(msgs.Expiration), sr.ExpirationMinutes, EscapeMarkdown(msgs.Minutes),
		EscapeMarkdown(msgs.Confidence), sr.Confidence,
		sr.Indicators.RSI,
		sr.Indicators.MACD,
		bbEmoji, sr.Indicators.BBPosition,
	)
}
