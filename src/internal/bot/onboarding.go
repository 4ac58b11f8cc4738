package bot

import (
	"context"
	"fmt"
	"time"

	"konung-miniapp-svc/src/internal/activity"
	"konung-miniapp-svc/src/internal/dialog"
	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/user"

	"github.com/sirupsen/logrus"
)

const (
	onboardingSceneID = "onboarding"
	maxNameLength     = 50
	minAge            = 1
	maxAge            = 100
)

func (b *Bot) onboardingScene() *dialog.Scene {
	return &dialog.Scene{
		ID: onboardingSceneID,
		Steps: []dialog.Step{
			{
				Field:       "name",
				Prompt:      "Добро пожаловать в MiniApp! Введите ваше имя:",
				ErrorPrompt: "Пожалуйста, введите текст",
				Validate:    dialog.NonEmptyString(maxNameLength),
			},
			{
				Field:       "age",
				Prompt:      "Введите ваш возраст:",
				ErrorPrompt: "Пожалуйста, введите корректный возраст (1-100 лет)",
				Validate:    dialog.IntInRange(minAge, maxAge),
			},
		},
		OnComplete: b.completeOnboarding,
	}
}

// completeOnboarding persists the collected profile, mints a web session and
// marks the user authenticated on the chat side.
func (b *Bot) completeOnboarding(ctx context.Context, sender dialog.Sender, fields map[string]any) (string, error) {
	name := dialog.StringField(fields, "name")
	age := dialog.IntField(fields, "age")
	now := time.Now()

	u := &user.User{
		ID:           sender.ID,
		Name:         name,
		Age:          age,
		Username:     sender.Username,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		RegisteredAt: now,
	}

	if err := b.users.Put(ctx, u); err != nil {
		return "", err
	}

	if b.directory != nil {
		if err := b.directory.Upsert(ctx, u); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to mirror user into directory")
		}
	}

	sess, err := b.issuer.Issue(ctx, u.ID)
	if err != nil {
		return "", err
	}

	authenticated := true
	patch := activity.Patch{
		Authenticated: &authenticated,
		UserName:      &name,
		UserAge:       &age,
		CreatedAt:     &now,
	}
	if err := b.activity.Update(ctx, u.ID, patch); err != nil {
		logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to update activity record after onboarding")
	}

	b.publish(u.ID, models.ServiceBotOnboarding, models.ActionRegistered)

	logrus.WithFields(logrus.Fields{
		"user_id": u.ID,
		"name":    name,
		"age":     age,
	}).Info("User registered")

	return fmt.Sprintf("Приятно познакомиться! Вас зовут %s, вам %d лет.\nВойти в MiniApp: %s",
		name, age, b.authLink(sess.Token)), nil
}
