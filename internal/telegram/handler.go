package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradepulse/tradepulse-go/internal/analysis"
	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/database"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

const analysisTimeout = 30 * time.Second

// Handler processes Telegram webhook updates: user registration and
// approval, language selection, and signal requests.
type Handler struct {
	users    *database.UserRepository
	analysis *analysis.Service
	cfg      *config.Config
	bot      *bot.Bot
	logger   *logrus.Logger
}

// NewHandler creates a Telegram handler. A missing or invalid bot token
// leaves the bot nil and the webhook answers 503, so deployments can run
// the HTTP API alone. users may be nil when Postgres is unavailable;
// the bot then serves signals without registration, approval or
// moderation.
func NewHandler(users *database.UserRepository, svc *analysis.Service, cfg *config.Config, logger *logrus.Logger) *Handler {
	h := &Handler{
		users:    users,
		analysis: svc,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.Telegram.BotToken == "" {
		logger.Warn("Telegram bot token not configured, bot disabled")
		return h
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		// Updates arrive through the webhook route instead.
	}))
	if err != nil {
		logger.WithError(err).Error("Failed to create Telegram bot, bot disabled")
		return h
	}

	h.bot = b
	return h
}

// Bot exposes the underlying bot for broadcast senders; nil when disabled.
func (h *Handler) Bot() *bot.Bot {
	return h.bot
}

// HandleWebhook processes incoming Telegram webhook requests.
func (h *Handler) HandleWebhook(c *gin.Context) {
	if h.bot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram bot not available"})
		return
	}

	var update tgmodels.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.WithError(err).Warn("Failed to parse Telegram update")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Recovered from panic while processing Telegram update")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()
		if err := h.processUpdate(ctx, &update); err != nil {
			h.logger.WithError(err).Error("Failed to process Telegram update")
		}
	}()

	// Telegram expects 200 regardless, or it re-delivers the update.
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) processUpdate(ctx context.Context, update *tgmodels.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	message := update.Message
	if message.From == nil || message.Chat.ID == 0 {
		return fmt.Errorf("invalid message: missing from or chat")
	}

	text := strings.TrimSpace(message.Text)
	if strings.HasPrefix(text, "/") {
		return h.handleCommand(ctx, message, text)
	}
	return h.handleTextMessage(ctx, message)
}

func (h *Handler) handleCommand(ctx context.Context, message *tgmodels.Message, command string) error {
	chatID := message.Chat.ID

	fields := strings.Fields(command)
	switch {
	case strings.HasPrefix(command, "/start"):
		return h.handleStart(ctx, chatID, message.From)
	case strings.HasPrefix(command, "/help"):
		return h.handleHelp(ctx, chatID, message.From.ID)
	case strings.HasPrefix(command, "/language"):
		return h.sendKeyboard(ctx, chatID, "🔄 Language / Забон / Язык", LanguageKeyboard())
	case strings.HasPrefix(command, "/signal"):
		return h.handleSignalCommand(ctx, chatID, message.From.ID, fields)
	case strings.HasPrefix(command, "/admin"):
		return h.handleAdminLogin(ctx, chatID, message.From.ID, fields)
	case strings.HasPrefix(command, "/pending"):
		return h.handlePending(ctx, chatID, message.From.ID)
	case strings.HasPrefix(command, "/approve"):
		return h.handleApproval(ctx, chatID, message.From.ID, fields, true)
	case strings.HasPrefix(command, "/reject"):
		return h.handleApproval(ctx, chatID, message.From.ID, fields, false)
	case strings.HasPrefix(command, "/broadcast"):
		return h.handleBroadcast(ctx, chatID, message.From.ID, command)
	default:
		return h.sendMessage(ctx, chatID, "Unknown command. Try /help.")
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64, from *tgmodels.User) error {
	// Without a user store there is nothing to register or approve; the
	// bot still serves signals to everyone.
	if h.users == nil {
		msgs := MessagesFor(ResolveLanguage(from.LanguageCode))
		return h.sendKeyboard(ctx, chatID, msgs.Welcome, PairKeyboard(DefaultPairs))
	}

	user, err := h.users.Register(ctx, from.ID, from.Username, from.FirstName, ResolveLanguage(from.LanguageCode))
	if err != nil {
		h.logger.WithError(err).Error("Failed to register user")
		return h.sendMessage(ctx, chatID, "Registration failed, please try again later.")
	}

	msgs := MessagesFor(user.LanguageCode)
	if !user.IsApproved {
		h.notifyAdmin(ctx, fmt.Sprintf("🆕 Pending user: %s (%d)\nApprove with /approve %d", from.FirstName, from.ID, from.ID))
		return h.sendMessage(ctx, chatID, msgs.NotApproved)
	}
	return h.sendKeyboard(ctx, chatID, msgs.Welcome, PairKeyboard(DefaultPairs))
}

func (h *Handler) handleHelp(ctx context.Context, chatID, userID int64) error {
	help := `📖 Commands:
/start — register and open the pair menu
/signal SYMBOL [5,15] — request a signal
/language — change language
/help — this message`

	if user, err := h.lookupUser(ctx, userID); err == nil && user.CanModerate() {
		help += `

🛡 Moderation:
/pending — list users awaiting approval
/approve ID | /reject ID
/broadcast TEXT — message all approved users`
	}
	return h.sendMessage(ctx, chatID, help)
}

func (h *Handler) handleSignalCommand(ctx context.Context, chatID, userID int64, fields []string) error {
	user, err := h.approvedUser(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}

	if len(fields) < 2 {
		return h.sendKeyboard(ctx, chatID, MessagesFor(user.LanguageCode).Welcome, PairKeyboard(DefaultPairs))
	}

	return h.runAnalysis(ctx, chatID, h.signalRequest(user, fields))
}

// signalRequest builds the pipeline request from a /signal command: the
// configured timeframes unless the command carries a valid override.
func (h *Handler) signalRequest(user *models.TelegramUser, fields []string) models.AnalysisRequest {
	req := models.AnalysisRequest{
		Symbol:     strings.ToUpper(fields[1]),
		Timeframes: h.analysis.Timeframes(),
		Language:   user.LanguageCode,
	}
	if len(fields) > 2 {
		if parsed := parseTimeframes(fields[2]); len(parsed) > 0 {
			req.Timeframes = parsed
		}
	}
	return req
}

// runAnalysis sends the progress message, runs the pipeline and replaces
// the progress message with the formatted report.
func (h *Handler) runAnalysis(ctx context.Context, chatID int64, req models.AnalysisRequest) error {
	msgs := MessagesFor(req.Language)

	progress, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   msgs.Analyzing,
	})
	if err != nil {
		return err
	}

	result := h.analysis.Analyze(ctx, req.Symbol, req.Timeframes)

	text := FormatSignalMessage(result, req.Language)
	if result.Failed() {
		h.logger.WithFields(logrus.Fields{
			"symbol": req.Symbol,
			"error":  result.Error,
		}).Warn("Analysis failed")
	}

	_, err = h.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: progress.ID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		// MarkdownV2 rejections fall back to plain text rather than
		// losing the signal entirely.
		h.logger.WithError(err).Warn("Markdown message rejected, retrying as plain text")
		_, err = h.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: progress.ID,
			Text:      msgs.TryAgain,
		})
	}
	return err
}

func (h *Handler) handleCallback(ctx context.Context, query *tgmodels.CallbackQuery) error {
	defer func() {
		_, err := h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})
		if err != nil {
			h.logger.WithError(err).Debug("Failed to answer callback query")
		}
	}()

	if query.Message.Message == nil {
		return nil
	}
	chatID := query.Message.Message.Chat.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, "lang_"):
		lang := ResolveLanguage(strings.TrimPrefix(data, "lang_"))
		if h.users != nil {
			if err := h.users.SetLanguage(ctx, query.From.ID, lang); err != nil {
				h.logger.WithError(err).Warn("Failed to persist language choice")
			}
		}
		return h.sendKeyboard(ctx, chatID, MessagesFor(lang).Welcome, PairKeyboard(DefaultPairs))

	case data == "change_language":
		return h.sendKeyboard(ctx, chatID, "🔄 Language / Забон / Язык", LanguageKeyboard())

	case data == "otc_pairs":
		lang := h.userLanguage(ctx, query.From.ID)
		return h.sendKeyboard(ctx, chatID, MessagesFor(lang).Welcome, PairKeyboard(OTCPairs))

	case strings.HasPrefix(data, "pair_"):
		user, err := h.approvedUser(ctx, chatID, query.From.ID)
		if err != nil || user == nil {
			return err
		}
		return h.runAnalysis(ctx, chatID, models.AnalysisRequest{
			Symbol:     strings.TrimPrefix(data, "pair_"),
			Timeframes: h.analysis.Timeframes(),
			Language:   user.LanguageCode,
		})
	}

	return nil
}

func (h *Handler) handleAdminLogin(ctx context.Context, chatID, userID int64, fields []string) error {
	if h.cfg.Admin.PasswordHash == "" {
		return h.sendMessage(ctx, chatID, "Admin access is not configured.")
	}
	if len(fields) < 2 {
		return h.sendMessage(ctx, chatID, "Usage: /admin PASSWORD")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.Admin.PasswordHash), []byte(fields[1])); err != nil {
		h.logger.WithField("telegram_id", userID).Warn("Failed admin login attempt")
		return h.sendMessage(ctx, chatID, "Wrong password.")
	}

	if h.users == nil {
		return h.sendMessage(ctx, chatID, "User features are unavailable right now.")
	}
	if err := h.users.SetAdmin(ctx, userID, true); err != nil {
		h.logger.WithError(err).Error("Failed to grant admin flag")
		return h.sendMessage(ctx, chatID, "Could not grant admin access, try /start first.")
	}
	return h.sendMessage(ctx, chatID, "👑 Admin access granted.")
}

func (h *Handler) handlePending(ctx context.Context, chatID, userID int64) error {
	if ok, err := h.requireModerator(ctx, chatID, userID); !ok {
		return err
	}

	pending, err := h.users.ListPending(ctx, 20)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending users")
		return h.sendMessage(ctx, chatID, "Could not load pending users.")
	}
	if len(pending) == 0 {
		return h.sendMessage(ctx, chatID, "No users awaiting approval.")
	}

	var b strings.Builder
	b.WriteString("⏳ Pending users:\n")
	for _, u := range pending {
		fmt.Fprintf(&b, "• %s (@%s) — /approve %d or /reject %d\n", u.FirstName, u.Username, u.TelegramID, u.TelegramID)
	}
	return h.sendMessage(ctx, chatID, b.String())
}

func (h *Handler) handleApproval(ctx context.Context, chatID, userID int64, fields []string, approve bool) error {
	if ok, err := h.requireModerator(ctx, chatID, userID); !ok {
		return err
	}
	if len(fields) < 2 {
		return h.sendMessage(ctx, chatID, "Usage: /approve ID or /reject ID")
	}

	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return h.sendMessage(ctx, chatID, "User ID must be numeric.")
	}

	if err := h.users.SetApproval(ctx, targetID, approve); err != nil {
		h.logger.WithError(err).WithField("target", targetID).Error("Failed to update approval")
		return h.sendMessage(ctx, chatID, "Could not update that user.")
	}

	if approve {
		if target, err := h.users.GetByTelegramID(ctx, targetID); err == nil {
			msgs := MessagesFor(target.LanguageCode)
			if err := h.sendKeyboard(ctx, targetID, msgs.Welcome, PairKeyboard(DefaultPairs)); err != nil {
				h.logger.WithError(err).Debug("Could not notify approved user")
			}
		}
		return h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Approved %d", targetID))
	}
	return h.sendMessage(ctx, chatID, fmt.Sprintf("🚫 Rejected %d", targetID))
}

func (h *Handler) handleBroadcast(ctx context.Context, chatID, userID int64, command string) error {
	if ok, err := h.requireModerator(ctx, chatID, userID); !ok {
		return err
	}

	text := strings.TrimSpace(strings.TrimPrefix(command, "/broadcast"))
	if text == "" {
		return h.sendMessage(ctx, chatID, "Usage: /broadcast TEXT")
	}

	users, err := h.users.ListApproved(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list broadcast recipients")
		return h.sendMessage(ctx, chatID, "Could not load recipients.")
	}

	sent := 0
	for _, u := range users {
		if err := h.sendMessage(ctx, u.TelegramID, text); err != nil {
			h.logger.WithError(err).WithField("telegram_id", u.TelegramID).Debug("Broadcast delivery failed")
			continue
		}
		sent++
	}
	return h.sendMessage(ctx, chatID, fmt.Sprintf("📣 Broadcast delivered to %d of %d users", sent, len(users)))
}

func (h *Handler) handleTextMessage(ctx context.Context, message *tgmodels.Message) error {
	lang := h.userLanguage(ctx, message.From.ID)
	return h.sendKeyboard(ctx, message.Chat.ID, MessagesFor(lang).Welcome, PairKeyboard(DefaultPairs))
}

// errUserStoreDisabled marks deployments running without Postgres.
var errUserStoreDisabled = errors.New("user store not configured")

// lookupUser is GetByTelegramID behind the nil-repository guard.
func (h *Handler) lookupUser(ctx context.Context, userID int64) (*models.TelegramUser, error) {
	if h.users == nil {
		return nil, errUserStoreDisabled
	}
	return h.users.GetByTelegramID(ctx, userID)
}

// approvedUser loads the user and enforces approval, messaging the chat
// when access is denied. A nil user with nil error means "already handled".
// Without a user store everyone passes as an approved guest.
func (h *Handler) approvedUser(ctx context.Context, chatID, userID int64) (*models.TelegramUser, error) {
	if h.users == nil {
		return &models.TelegramUser{
			TelegramID:   userID,
			LanguageCode: DefaultLanguage,
			IsApproved:   true,
		}, nil
	}

	user, err := h.users.GetByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, h.sendMessage(ctx, chatID, "Please register first with /start.")
		}
		h.logger.WithError(err).Error("Failed to load user")
		return nil, h.sendMessage(ctx, chatID, "Something went wrong, please try again.")
	}
	if !user.IsApproved {
		return nil, h.sendMessage(ctx, chatID, MessagesFor(user.LanguageCode).NotApproved)
	}
	return user, nil
}

func (h *Handler) requireModerator(ctx context.Context, chatID, userID int64) (bool, error) {
	if h.users == nil {
		return false, h.sendMessage(ctx, chatID, "User features are unavailable right now.")
	}
	user, err := h.users.GetByTelegramID(ctx, userID)
	if err != nil || !user.CanModerate() {
		return false, h.sendMessage(ctx, chatID, "This command requires moderator access.")
	}
	return true, nil
}

func (h *Handler) userLanguage(ctx context.Context, userID int64) string {
	if user, err := h.lookupUser(ctx, userID); err == nil {
		return user.LanguageCode
	}
	return DefaultLanguage
}

func (h *Handler) notifyAdmin(ctx context.Context, text string) {
	if h.cfg.Admin.ChatID == 0 {
		return
	}
	if err := h.sendMessage(ctx, h.cfg.Admin.ChatID, text); err != nil {
		h.logger.WithError(err).Debug("Failed to notify admin chat")
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) error {
	if h.bot == nil {
		return fmt.Errorf("telegram bot not available")
	}
	_, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (h *Handler) sendKeyboard(ctx context.Context, chatID int64, text string, keyboard *tgmodels.InlineKeyboardMarkup) error {
	if h.bot == nil {
		return fmt.Errorf("telegram bot not available")
	}
	_, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	return err
}

func parseTimeframes(raw string) []int {
	var timeframes []int
	for _, part := range strings.Split(raw, ",") {
		tf, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || tf <= 0 {
			continue
		}
		timeframes = append(timeframes, tf)
	}
	return timeframes
}
