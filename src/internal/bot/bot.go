package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"konung-miniapp-svc/src/internal/activity"
	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/dialog"
	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/session"
	"konung-miniapp-svc/src/internal/user"

	"github.com/sirupsen/logrus"
)

// User-facing replies, kept verbatim from the production bot.
const (
	replyMenuUnavailable  = "Меню недоступно в текущей версии бота."
	replyRegisterFirst    = "Сначала зарегистрируйтесь — отправьте /start."
	replyNotAuthenticated = "Вы не авторизованы. Отправьте /start, чтобы зарегистрироваться."
	replyLoggedOut        = "Вы вышли из профиля."
	replyFallback         = "Отправьте /start, чтобы начать."
	replyTransientFailure = "Что-то пошло не так, попробуйте позже."
	buttonOpenMiniApp     = "Открыть MiniApp"
)

// Publisher pushes user activity events; nil disables publishing.
type Publisher interface {
	PublishAction(userID int64, serviceName, action string) error
}

// Bot routes inbound chat updates: slash commands abort any active dialog and
// run directly, plain text advances the dialog engine.
type Bot struct {
	cfg       *config.Configuration
	engine    *dialog.Engine
	users     user.Repository
	directory user.Directory
	issuer    *session.Issuer
	activity  activity.Cache
	transport Transport
	publisher Publisher
}

func New(
	cfg *config.Configuration,
	engine *dialog.Engine,
	users user.Repository,
	directory user.Directory,
	issuer *session.Issuer,
	activityCache activity.Cache,
	transport Transport,
	publisher Publisher,
) *Bot {
	b := &Bot{
		cfg:       cfg,
		engine:    engine,
		users:     users,
		directory: directory,
		issuer:    issuer,
		activity:  activityCache,
		transport: transport,
		publisher: publisher,
	}
	engine.Register(b.onboardingScene())
	return b
}

func (b *Bot) HandleUpdate(ctx context.Context, upd Update) error {
	sender := dialog.Sender{
		ID:        upd.UserID,
		Username:  upd.Username,
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
	}

	// Every bot-side interaction refreshes the activity timestamp.
	if err := b.activity.Update(ctx, upd.UserID, activity.Patch{}); err != nil {
		logrus.WithError(err).WithField("user_id", upd.UserID).Warn("Failed to refresh activity record")
	}

	command := upd.Command()
	if command != "" {
		// A command interrupts any active scene; the abort is silent.
		if err := b.engine.Abort(ctx, upd.UserID); err != nil {
			logrus.WithError(err).WithField("user_id", upd.UserID).Warn("Failed to abort dialog state")
		}
	}

	switch command {
	case "/start":
		return b.handleStart(ctx, sender)
	case "/auth":
		return b.handleAuth(ctx, sender)
	case "/profile":
		return b.handleProfile(ctx, sender)
	case "/logout":
		return b.handleLogout(ctx, sender)
	case "/menu":
		return b.transport.SendMessage(ctx, sender.ID, replyMenuUnavailable)
	case "":
		return b.handleText(ctx, sender, upd.Text)
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": upd.UserID,
			"command": command,
		}).Debug("Unknown command")
		return b.transport.SendMessage(ctx, sender.ID, replyFallback)
	}
}

func (b *Bot) handleStart(ctx context.Context, sender dialog.Sender) error {
	prompt, err := b.engine.Enter(ctx, sender, onboardingSceneID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Failed to enter onboarding scene")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}

	return b.transport.SendMessageWithButton(ctx, sender.ID, prompt, Button{
		Text:      buttonOpenMiniApp,
		WebAppURL: b.cfg.App.HostLink,
	})
}

func (b *Bot) handleAuth(ctx context.Context, sender dialog.Sender) error {
	_, err := b.users.Get(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return b.transport.SendMessage(ctx, sender.ID, replyRegisterFirst)
		}
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Failed to load user record")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}

	sess, err := b.issuer.Issue(ctx, sender.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Failed to issue session")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}

	authenticated := true
	if err := b.activity.Update(ctx, sender.ID, activity.Patch{Authenticated: &authenticated}); err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Warn("Failed to mark activity record authenticated")
	}
	b.publish(sender.ID, models.ServiceBotAuth, models.ActionAuthenticated)

	link := b.authLink(sess.Token)
	return b.transport.SendMessageWithButton(ctx, sender.ID,
		"Ваша ссылка для входа готова. Токен действует 24 часа.",
		Button{Text: buttonOpenMiniApp, URL: link})
}

func (b *Bot) handleProfile(ctx context.Context, sender dialog.Sender) error {
	record, err := b.activity.Get(ctx, sender.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Failed to read activity record")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}

	if !record.Authenticated {
		return b.transport.SendMessage(ctx, sender.ID, replyNotAuthenticated)
	}

	text := fmt.Sprintf("Ваш профиль:\nИмя: %s\nВозраст: %d\nПоследняя активность: %s",
		record.UserName, record.UserAge, record.LastActivityAt.Format(time.RFC3339))
	return b.transport.SendMessage(ctx, sender.ID, text)
}

func (b *Bot) handleLogout(ctx context.Context, sender dialog.Sender) error {
	// Clears the chat-side record only; web sessions stay valid until they
	// expire or are revoked through the web surface.
	if err := b.activity.Clear(ctx, sender.ID); err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Failed to clear activity record")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}

	b.publish(sender.ID, models.ServiceBotLogout, models.ActionLogout)
	return b.transport.SendMessage(ctx, sender.ID, replyLoggedOut)
}

func (b *Bot) handleText(ctx context.Context, sender dialog.Sender, text string) error {
	reply, handled, err := b.engine.HandleMessage(ctx, sender, text)
	if err != nil {
		logrus.WithError(err).WithField("user_id", sender.ID).Error("Dialog engine failed")
		return b.transport.SendMessage(ctx, sender.ID, replyTransientFailure)
	}
	if !handled {
		return b.transport.SendMessage(ctx, sender.ID, replyFallback)
	}
	if reply == "" {
		return nil
	}
	return b.transport.SendMessage(ctx, sender.ID, reply)
}

func (b *Bot) authLink(token string) string {
	return fmt.Sprintf("%s/auth?token=%s", b.cfg.App.HostLink, token)
}

func (b *Bot) publish(userID int64, serviceName, action string) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishAction(userID, serviceName, action); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to publish activity event")
	}
}
