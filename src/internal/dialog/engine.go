package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/storage"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "dialog:"

// State is the persisted progress of one user through a scene. At most one
// exists per user; entering a new scene replaces it.
type State struct {
	UserID        int64          `json:"userId"`
	SceneID       string         `json:"sceneId"`
	StepIndex     int            `json:"stepIndex"`
	Fields        map[string]any `json:"fields"`
	EnteredStepAt time.Time      `json:"enteredStepAt"`
}

// Engine drives scenes as an explicit state machine: scene definitions are
// static tables, progress lives in the keyed store, and transitions for a
// single user are serialized through a per-user lock.
type Engine struct {
	store  storage.Store
	scenes map[string]*Scene
	now    func() time.Time

	mu    sync.Mutex
	locks map[int64]*userLock
}

// userLock is refcounted so the lock map can drop entries once the last
// holder releases; otherwise it would grow with every user id ever seen.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(store storage.Store) *Engine {
	return &Engine{
		store:  store,
		scenes: make(map[string]*Scene),
		now:    time.Now,
		locks:  make(map[int64]*userLock),
	}
}

func (e *Engine) Register(scene *Scene) {
	e.scenes[scene.ID] = scene
}

func Key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Enter starts the scene for the user, replacing any active dialog, and
// returns the first step's prompt. The triggering message is not consumed:
// the next inbound text goes to step 0's validator.
func (e *Engine) Enter(ctx context.Context, sender Sender, sceneID string) (string, error) {
	unlock := e.lockUser(sender.ID)
	defer unlock()

	scene, ok := e.scenes[sceneID]
	if !ok {
		return "", models.ErrSceneNotFound
	}
	if len(scene.Steps) == 0 {
		return "", models.ErrSceneNotFound
	}

	state := &State{
		UserID:        sender.ID,
		SceneID:       sceneID,
		StepIndex:     0,
		Fields:        make(map[string]any),
		EnteredStepAt: e.now(),
	}
	if err := e.saveState(ctx, state); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": sender.ID,
		"scene":   sceneID,
	}).Debug("Scene entered")
	return scene.Steps[0].Prompt, nil
}

// HandleMessage feeds an inbound text to the active step. It returns
// handled=false when the user has no active dialog.
func (e *Engine) HandleMessage(ctx context.Context, sender Sender, text string) (string, bool, error) {
	unlock := e.lockUser(sender.ID)
	defer unlock()

	state, err := e.loadState(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	scene, ok := e.scenes[state.SceneID]
	if !ok || state.StepIndex >= len(scene.Steps) {
		// Stale state from a scene this build no longer knows; drop it.
		logrus.WithFields(logrus.Fields{
			"user_id": sender.ID,
			"scene":   state.SceneID,
		}).Warn("Discarding dialog state for unknown scene")
		return "", false, e.store.Delete(ctx, Key(sender.ID))
	}

	step := scene.Steps[state.StepIndex]
	value, err := step.Validate(text)
	if err != nil {
		// Rejected input re-prompts the same step; nothing is recorded.
		return step.ErrorPrompt, true, nil
	}

	state.Fields[step.Field] = value

	if state.StepIndex+1 < len(scene.Steps) {
		state.StepIndex++
		state.EnteredStepAt = e.now()
		if err := e.saveState(ctx, state); err != nil {
			return "", true, err
		}
		return scene.Steps[state.StepIndex].Prompt, true, nil
	}

	// Scene complete: the state is deleted before the completion handler
	// runs, so completion can never re-enter.
	if err := e.store.Delete(ctx, Key(sender.ID)); err != nil {
		return "", true, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": sender.ID,
		"scene":   scene.ID,
	}).Info("Scene completed")

	reply, err := scene.OnComplete(ctx, sender, state.Fields)
	return reply, true, err
}

// Abort silently discards the user's dialog state, if any. Commands arriving
// mid-scene use this; it is a state transition, not an error.
func (e *Engine) Abort(ctx context.Context, userID int64) error {
	unlock := e.lockUser(userID)
	defer unlock()

	return e.store.Delete(ctx, Key(userID))
}

// Active reports whether the user currently has a dialog in progress.
func (e *Engine) Active(ctx context.Context, userID int64) (bool, error) {
	_, err := e.store.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Engine) saveState(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		logrus.WithError(err).WithField("user_id", state.UserID).Error("Failed to marshal dialog state")
		return models.ErrRedisSet
	}
	return e.store.Set(ctx, Key(state.UserID), data)
}

func (e *Engine) loadState(ctx context.Context, userID int64) (*State, error) {
	data, err := e.store.Get(ctx, Key(userID))
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to unmarshal dialog state")
		return nil, models.ErrRedisGet
	}
	if state.Fields == nil {
		state.Fields = make(map[string]any)
	}
	return &state, nil
}

// lockUser serializes dialog transitions per user id. Two messages from the
// same user must never be validated against the same step concurrently.
func (e *Engine) lockUser(userID int64) func() {
	e.mu.Lock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &userLock{}
		e.locks[userID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		e.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(e.locks, userID)
		}
		e.mu.Unlock()
	}
}
