// Package telegram is the student-facing bot: it lists open placement drives
// and found items, and tells watching chats when those lists change.
package telegram

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/hub"
	"collegemate/backend/internal/localization"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const fetchTimeout = 20 * time.Second

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Sender    Sender
	Hub       *hub.Manager
	Session   *session.Session
	Storage   WatchStorage
	Localizer *localization.Localizer
	Logger    *zap.Logger

	mu        sync.Mutex
	clients   map[int64]*Client
	languages map[int64]string
}

// NewBotService connects to Telegram with token. The session is the gateway
// session every chat reads through; the bot holds it for its lifetime.
func NewBotService(token string, h *hub.Manager, s *session.Session, store WatchStorage, loc *localization.Localizer, logger *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	svc := New(bot, h, s, store, loc, logger)
	svc.BotAPI = bot
	svc.Logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))
	return svc, nil
}

// New builds the service around any Sender.
func New(sender Sender, h *hub.Manager, s *session.Session, store WatchStorage, loc *localization.Localizer, logger *zap.Logger) *BotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.Acquire()
	return &BotService{
		Sender:    sender,
		Hub:       h,
		Session:   s,
		Storage:   store,
		Localizer: loc,
		Logger:    logger.Named("telegram"),
		clients:   make(map[int64]*Client),
		languages: make(map[int64]string),
	}
}

// Run long-polls Telegram until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	defer s.Session.Release()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate dispatches one update.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		s.handleCallbackQuery(update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil {
		return
	}
	s.rememberLanguage(msg)
	if !msg.IsCommand() {
		s.reply(msg.Chat.ID, s.text(msg.Chat.ID, "unknown_command"))
		return
	}

	switch msg.Command() {
	case "start", "help":
		s.reply(msg.Chat.ID, s.text(msg.Chat.ID, "welcome"))
	case "placements":
		s.handlePlacementsCommand(msg.Chat.ID)
	case "found":
		s.handleFoundCommand(msg.Chat.ID)
	case "watch":
		s.handleWatchCommand(msg.Chat.ID, msg.CommandArguments())
	case "unwatch":
		s.handleUnwatchCommand(msg.Chat.ID)
	case "language":
		s.handleLanguageCommand(msg.Chat.ID)
	default:
		s.reply(msg.Chat.ID, s.text(msg.Chat.ID, "unknown_command"))
	}
}

// rememberLanguage takes the chat's language from the Telegram client the
// first time we see it, when we have that translation.
func (s *BotService) rememberLanguage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.languages[msg.Chat.ID]; ok {
		return
	}
	if code := msg.From.LanguageCode; code != "" && s.Localizer.Has(code) {
		s.languages[msg.Chat.ID] = code
	}
}

func (s *BotService) language(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang, ok := s.languages[chatID]; ok {
		return lang
	}
	return localization.DefaultLanguage
}

func (s *BotService) text(chatID int64, key string, args ...any) string {
	return s.Localizer.Format(s.language(chatID), key, args...)
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.Sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.Logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *BotService) fetchFailed(chatID int64, err error) {
	s.Logger.Warn("upstream fetch failed", zap.Int64("chat_id", chatID), zap.Error(err))
	s.reply(chatID, s.text(chatID, "fetch_failed", apiclient.MessageOf(err, err.Error())))
}

func (s *BotService) openPlacements(ctx context.Context) ([]models.Placement, error) {
	all, err := s.Session.Placements.StudentAll(ctx)
	if err != nil {
		return nil, err
	}
	open := all[:0:0]
	for _, p := range all {
		if p.Status == models.PlacementOpen {
			open = append(open, p)
		}
	}
	return open, nil
}

func (s *BotService) unclaimedItems(ctx context.Context) ([]models.LostFoundItem, error) {
	all, err := s.Session.LostFound.FoundItems(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, it := range all {
		if it.Status != models.ItemClaimed {
			out = append(out, it)
		}
	}
	return out, nil
}

// count is what a watch reports for domain.
func (s *BotService) count(ctx context.Context, domain string) (int, error) {
	switch domain {
	case "placements":
		list, err := s.openPlacements(ctx)
		return len(list), err
	case "items":
		list, err := s.unclaimedItems(ctx)
		return len(list), err
	}
	return 0, fmt.Errorf("unknown domain %q", domain)
}

func (s *BotService) handlePlacementsCommand(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	list, err := s.openPlacements(ctx)
	if err != nil {
		s.fetchFailed(chatID, err)
		return
	}
	if len(list) == 0 {
		s.reply(chatID, s.text(chatID, "no_placements"))
		return
	}
	var b strings.Builder
	b.WriteString(s.text(chatID, "placements_header", len(list)))
	for _, p := range list {
		fmt.Fprintf(&b, "\n• %s: %s", p.CompanyName, p.JobTitle)
		if p.Deadline != nil {
			fmt.Fprintf(&b, " (%s)", p.Deadline.Format("2006-01-02"))
		}
		if p.StudentStatus() != models.NotRegistered {
			fmt.Fprintf(&b, " [%s]", p.StudentStatus())
		}
	}
	s.reply(chatID, b.String())
}

func (s *BotService) handleFoundCommand(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	list, err := s.unclaimedItems(ctx)
	if err != nil {
		s.fetchFailed(chatID, err)
		return
	}
	if len(list) == 0 {
		s.reply(chatID, s.text(chatID, "no_found_items"))
		return
	}
	var b strings.Builder
	b.WriteString(s.text(chatID, "found_header", len(list)))
	for _, it := range list {
		title := it.Title
		if title == "" {
			title = it.Name
		}
		fmt.Fprintf(&b, "\n• %s", title)
		if it.Landmark != "" {
			fmt.Fprintf(&b, " (%s)", it.Landmark)
		}
	}
	s.reply(chatID, b.String())
}

func (s *BotService) handleLanguageCommand(chatID int64) {
	var row []tgbotapi.InlineKeyboardButton
	for _, lang := range s.Localizer.Languages() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strings.ToUpper(lang), "set_lang_"+lang))
	}
	msg := tgbotapi.NewMessage(chatID, s.text(chatID, "choose_language"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := s.Sender.Send(msg); err != nil {
		s.Logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *BotService) handleCallbackQuery(q *tgbotapi.CallbackQuery) {
	// Прибираємо "годинник" на кнопці
	if _, err := s.Sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		s.Logger.Warn("callback answer failed", zap.Error(err))
	}
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	lang, ok := strings.CutPrefix(q.Data, "set_lang_")
	if !ok || !s.Localizer.Has(lang) {
		s.Logger.Debug("unknown callback", zap.String("data", q.Data))
		return
	}

	s.mu.Lock()
	s.languages[chatID] = lang
	c := s.clients[chatID]
	s.mu.Unlock()

	if c != nil {
		c.setLanguage(lang)
		if err := s.Storage.SaveWatch(c.record()); err != nil {
			s.Logger.Error("save watch failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	s.reply(chatID, s.text(chatID, "language_changed"))
}
