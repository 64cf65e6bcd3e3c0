package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/repository"
	"github.com/podbrah/podbrah-backend/wizard"
)

// SessionView is what the wizard endpoints return.
type SessionView struct {
	ID           string            `json:"id"`
	PodcastID    string            `json:"podcast_id"`
	PodcastTitle string            `json:"podcast_title"`
	Stage        wizard.Stage      `json:"stage"`
	CurrentTheme *wizard.Theme     `json:"current_theme"`
	Messages     []wizard.Message  `json:"messages"`
	Responses    []wizard.Response `json:"responses"`
	WhyListen    string            `json:"why_listen,omitempty"`
	Progress     wizard.Progress   `json:"progress"`
	Thinking     bool              `json:"thinking"`
	Ready        bool              `json:"ready"`
}

type FinishResult struct {
	PodcastID string            `json:"podcast_id"`
	Payload   wizard.Payload    `json:"payload"`
	Entry     *models.FeedEntry `json:"feed_entry"`
}

// persistTimeout bounds the write that follows a completion call. It runs
// detached from the request so a dropped client cannot strand the placeholder.
const persistTimeout = 5 * time.Second

type WizardServiceConfig struct {
	Feedback bool
}

// WizardService owns wizard sessions: loading, locking, completion calls and persistence.
type WizardService struct {
	repo      *repository.Repository
	store     SessionStore
	completer Completer
	feedback  bool
	log       *logger.Logger
	now       func() time.Time
}

func NewWizardService(repo *repository.Repository, store SessionStore, completer Completer, cfg WizardServiceConfig, log *logger.Logger) *WizardService {
	return &WizardService{
		repo:      repo,
		store:     store,
		completer: completer,
		feedback:  cfg.Feedback,
		log:       log,
		now:       time.Now,
	}
}

// ThemesFrom converts stored themes, keeping only the selected chapters when any are given.
func ThemesFrom(themes []models.Theme, chapters []int) []wizard.Theme {
	keep := make(map[int]bool, len(chapters))
	for _, c := range chapters {
		keep[c] = true
	}
	out := make([]wizard.Theme, 0, len(themes))
	for _, t := range themes {
		if len(keep) > 0 && !keep[t.ChapterNumber] {
			continue
		}
		ideas := make([]wizard.BigIdea, 0, len(t.BigIdeas))
		for _, idea := range t.BigIdeas {
			ideas = append(ideas, wizard.BigIdea{Title: idea.Title, Quote: idea.Quote})
		}
		out = append(out, wizard.Theme{
			ChapterNumber:   t.ChapterNumber,
			Title:           t.ThemeTitle,
			Gist:            t.Gist(),
			SimpleBreakdown: t.Breakdown(),
			BigIdeas:        ideas,
		})
	}
	return out
}

func (s *WizardService) Start(ctx context.Context, userID, podcastID string, chapters []int) (*SessionView, error) {
	overview, err := s.repo.GetOverview(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	w, err := wizard.Start(ThemesFrom(overview.Themes, chapters))
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   overview.ContentRef,
		Wizard:    w.Snapshot(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("wizard started", "user_id", userID, "session_id", sess.ID, "podcast_id", podcastID, "themes", len(sess.Wizard.Themes))
	return view(sess, w), nil
}

func (s *WizardService) Get(ctx context.Context, userID, id string) (*SessionView, error) {
	sess, w, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return view(sess, w), nil
}

func (s *WizardService) Choose(ctx context.Context, userID, id string, choice wizard.Choice) (*SessionView, error) {
	return s.mutate(ctx, userID, id, func(_ *Session, w *wizard.Wizard) error {
		return w.Choose(choice)
	})
}

func (s *WizardService) Advance(ctx context.Context, userID, id string) (*SessionView, error) {
	return s.mutate(ctx, userID, id, func(_ *Session, w *wizard.Wizard) error {
		return w.Advance()
	})
}

// Submit records user text. With feedback enabled, a captured explanation is
// followed by a short assistant reaction; a failed call degrades to an apology.
func (s *WizardService) Submit(ctx context.Context, userID, id, text string) (*SessionView, error) {
	release, err := s.store.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, w, err := s.loadLocked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	theme := w.CurrentTheme()

	accepted, err := w.SubmitUserText(text)
	if err != nil {
		return nil, s.reject(sess, err)
	}
	if !accepted {
		return view(sess, w), nil
	}
	if !s.feedback || theme == nil || w.Stage() != wizard.StageConfirm {
		return s.save(ctx, sess, w)
	}

	if err := w.BeginThinking(); err != nil {
		return nil, s.reject(sess, err)
	}
	if _, err := s.save(ctx, sess, w); err != nil {
		return nil, err
	}

	profileName := s.displayName(ctx, userID)
	system, user := ComposeFeedbackPrompt(*theme, text, profileName)
	reply, err := s.completer.Complete(ctx, CompletionRequest{Task: TaskFeedback, System: system, User: user})
	if err != nil {
		s.log.Warn("wizard feedback failed", "session_id", id, "error", err)
		reply = ApologyReply
	}
	w.ResolveThinking(reply)
	return s.saveDetached(ctx, sess, w)
}

// Synthesize asks the model for the why-listen text from the captured
// explanations. On failure the closing text is left unset and an apology is shown.
func (s *WizardService) Synthesize(ctx context.Context, userID, id, discussion string) (*SessionView, error) {
	release, err := s.store.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, w, err := s.loadLocked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if w.Stage() != wizard.StageWhyListen {
		return nil, s.reject(sess, wizard.ErrInvalidTransition)
	}
	if err := w.BeginThinking(); err != nil {
		return nil, s.reject(sess, err)
	}
	if _, err := s.save(ctx, sess, w); err != nil {
		return nil, err
	}

	system := ComposeDiscussionPrompt(StageSynthesis, discussion, "", s.displayName(ctx, userID))
	reply, err := s.completer.Complete(ctx, CompletionRequest{
		Task:   TaskSynthesis,
		System: system,
		User:   ComposeSynthesisPrompt(w.Responses(), discussion),
	})
	if err != nil {
		s.log.Warn("wizard synthesis failed", "session_id", id, "error", err)
		w.ResolveThinking(ApologyReply)
		return s.saveDetached(ctx, sess, w)
	}
	w.ResolveThinking(reply)
	if err := w.RecordClosing(reply); err != nil {
		return nil, s.reject(sess, err)
	}
	return s.saveDetached(ctx, sess, w)
}

// Finish persists ideas and the feed entry, then drops the session. If the
// write fails the session is untouched and the user can retry.
func (s *WizardService) Finish(ctx context.Context, userID, id string) (*FinishResult, error) {
	release, err := s.store.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, w, err := s.loadLocked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	payload, err := w.Finish()
	if err != nil {
		return nil, s.reject(sess, err)
	}

	content, err := s.repo.ResolveContentItem(ctx, sess.Content.PodcastID)
	if errors.Is(err, repository.ErrContentNotFound) {
		_ = s.store.Delete(ctx, id)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	var snapshot repository.ProfileSnapshot
	profile, err := s.repo.GetProfile(ctx, userID)
	switch {
	case err == nil:
		snapshot = repository.ProfileSnapshot{TwinName: profile.TwinName, AvatarURL: profile.AvatarURL}
	case !errors.Is(err, repository.ErrProfileNotFound):
		return nil, err
	}

	entry, err := s.repo.PersistCompletion(ctx, repository.CompletionInput{
		UserID:  userID,
		Content: content,
		Profile: snapshot,
		Payload: payload,
	})
	if err != nil {
		s.log.Error("wizard completion not saved", "user_id", userID, "session_id", id, "error", err)
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Warn("wizard session not deleted", "session_id", id, "error", err)
	}
	s.log.Info("wizard finished", "user_id", userID, "session_id", id, "themes", len(payload.Themes))
	return &FinishResult{PodcastID: content.PodcastID, Payload: payload, Entry: entry}, nil
}

func (s *WizardService) mutate(ctx context.Context, userID, id string, fn func(*Session, *wizard.Wizard) error) (*SessionView, error) {
	release, err := s.store.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, w, err := s.loadLocked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess, w); err != nil {
		return nil, s.reject(sess, err)
	}
	return s.save(ctx, sess, w)
}

// load hides sessions owned by other users behind ErrSessionNotFound.
func (s *WizardService) load(ctx context.Context, userID, id string) (*Session, *wizard.Wizard, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.UserID != userID {
		return nil, nil, ErrSessionNotFound
	}
	w, err := wizard.Restore(sess.Wizard)
	if err != nil {
		s.log.DPanic("stored wizard session is invalid", "session_id", id, "error", err)
		return nil, nil, err
	}
	return sess, w, nil
}

// loadLocked is load for callers holding the session lock. A stored placeholder
// then belongs to a request that died before saving its reply, so it is
// resolved with the apology instead of blocking the session until it expires.
func (s *WizardService) loadLocked(ctx context.Context, userID, id string) (*Session, *wizard.Wizard, error) {
	sess, w, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if w.Thinking() {
		s.log.Warn("wizard placeholder left by an earlier request", "session_id", id, "stage", w.Stage())
		w.ResolveThinking(ApologyReply)
	}
	return sess, w, nil
}

func (s *WizardService) saveDetached(ctx context.Context, sess *Session, w *wizard.Wizard) (*SessionView, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return s.save(ctx, sess, w)
}

func (s *WizardService) save(ctx context.Context, sess *Session, w *wizard.Wizard) (*SessionView, error) {
	sess.Wizard = w.Snapshot()
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return view(sess, w), nil
}

// reject logs transitions the client should never have offered.
func (s *WizardService) reject(sess *Session, err error) error {
	if apperr.KindOf(err) == apperr.KindInvariant {
		s.log.Warn("wizard transition rejected", "session_id", sess.ID, "stage", sess.Wizard.Stage, "error", err)
	}
	return err
}

func (s *WizardService) displayName(ctx context.Context, userID string) string {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return listenerName("")
	}
	return p.DisplayName()
}

func view(sess *Session, w *wizard.Wizard) *SessionView {
	return &SessionView{
		ID:           sess.ID,
		PodcastID:    sess.Content.PodcastID,
		PodcastTitle: sess.Content.Title,
		Stage:        w.Stage(),
		CurrentTheme: w.CurrentTheme(),
		Messages:     w.Messages(),
		Responses:    w.Responses(),
		WhyListen:    w.WhyListen(),
		Progress:     w.Progress(),
		Thinking:     w.Thinking(),
		Ready:        w.Ready(),
	}
}
