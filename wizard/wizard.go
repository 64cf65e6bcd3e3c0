// Package wizard is the theme-exploration state machine behind the overview chat.
// It holds no I/O: sessions, locking and completion calls live in services.
package wizard

import (
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type BigIdea struct {
	Title string `json:"title"`
	Quote string `json:"quote"`
}

type Theme struct {
	ChapterNumber   int       `json:"chapter_number"`
	Title           string    `json:"theme_title"`
	Gist            string    `json:"theme_gist"`
	SimpleBreakdown string    `json:"simple_breakdown,omitempty"`
	BigIdeas        []BigIdea `json:"big_ideas,omitempty"`
}

// Response is one captured explanation, keyed by theme title.
type Response struct {
	ThemeTitle      string `json:"themeTitle"`
	ChapterNumber   int    `json:"chapterNumber,omitempty"`
	UserExplanation string `json:"userExplanation"`
}

// Payload is handed to persistence once the wizard is complete.
type Payload struct {
	Themes    []Response `json:"themes"`
	WhyListen string     `json:"whyListen"`
}

type Choice string

const (
	ChoiceUnpack   Choice = "unpack"
	ChoiceContinue Choice = "continue"
)

// Progress mirrors the progress bar: four steps per theme.
type Progress struct {
	CurrentTheme int   `json:"currentTheme"`
	TotalThemes  int   `json:"totalThemes"`
	Stage        Stage `json:"stage"`
	Percent      int   `json:"percent"`
}

const (
	ThinkingPlaceholder = "…"

	unpackOffer       = "Would you like me to break this down into simpler terms?"
	breakdownFallback = "Let's explore this concept in simpler terms..."
	explainAfterBreak = "Could you explain this in your own words?"
	explainPrompt     = "Could you explain this concept in your own words?"
	closingIntro      = "Let's get to the core of what made the conversation and its ideas so interesting. When you're ready, I'll turn your thoughts into a short pitch for why others should listen."
	closingQuestion   = "How would you explain the gist, or the essence, of this conversation to a friend who had no idea what the podcast was about? Think of someone who would benefit from listening, and convince them."

	stepsPerTheme = 4
)

type Wizard struct {
	themes    []Theme
	index     int
	stage     Stage
	responses []Response
	messages  []Message
	whyListen string
	closed    bool
	thinking  bool
}

// Start sorts themes by chapter number and renders the first one.
func Start(themes []Theme) (*Wizard, error) {
	if len(themes) == 0 {
		return nil, ErrEmptyInput
	}
	sorted := make([]Theme, len(themes))
	copy(sorted, themes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ChapterNumber < sorted[j].ChapterNumber })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ChapterNumber == sorted[i-1].ChapterNumber {
			return nil, fmt.Errorf("%w: chapter %d", ErrDuplicateChapter, sorted[i].ChapterNumber)
		}
	}

	w := &Wizard{themes: sorted, stage: StagePresent}
	w.presentCurrent()
	return w, nil
}

func (w *Wizard) Stage() Stage { return w.stage }

func (w *Wizard) ThemeIndex() int { return w.index }

func (w *Wizard) Themes() []Theme {
	out := make([]Theme, len(w.themes))
	copy(out, w.themes)
	return out
}

// CurrentTheme is nil once every theme has been confirmed.
func (w *Wizard) CurrentTheme() *Theme {
	if w.stage == StageWhyListen || w.stage == StageComplete {
		return nil
	}
	t := w.themes[w.index]
	return &t
}

func (w *Wizard) Messages() []Message {
	out := make([]Message, len(w.messages))
	copy(out, w.messages)
	return out
}

func (w *Wizard) Responses() []Response {
	out := make([]Response, len(w.responses))
	copy(out, w.responses)
	return out
}

func (w *Wizard) WhyListen() string { return w.whyListen }

func (w *Wizard) Thinking() bool { return w.thinking }

// Ready reports whether Finish would succeed.
func (w *Wizard) Ready() bool {
	return w.stage == StageWhyListen && w.closed && len(w.responses) == len(w.themes)
}

// Choose handles the two buttons offered while a theme is presented.
func (w *Wizard) Choose(choice Choice) error {
	var ev event
	switch choice {
	case ChoiceUnpack:
		ev = evUnpack
	case ChoiceContinue:
		ev = evContinue
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	if w.thinking {
		return ErrSubmissionInFlight
	}
	to, err := next(w.stage, ev)
	if err != nil {
		return err
	}

	theme := w.themes[w.index]
	switch ev {
	case evUnpack:
		if breakdown := strings.TrimSpace(theme.SimpleBreakdown); breakdown != "" {
			w.say(breakdown)
		} else {
			w.say(breakdownFallback)
		}
		w.say(explainAfterBreak)
	case evContinue:
		w.say(explainPrompt)
	}
	w.stage = to
	return nil
}

// SubmitUserText records free text. Blank input is ignored and reports false.
func (w *Wizard) SubmitUserText(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if w.thinking {
		return false, ErrSubmissionInFlight
	}

	switch {
	case w.stage.capturesExplanation():
		to, err := next(w.stage, evExplain)
		if err != nil {
			return false, err
		}
		w.messages = append(w.messages, Message{Role: RoleUser, Content: text})
		w.recordResponse(text)
		w.say("Your explanation:\n\n" + text)
		w.stage = to
		return true, nil
	case w.stage == StageWhyListen:
		w.messages = append(w.messages, Message{Role: RoleUser, Content: text})
		return true, w.RecordClosing(text)
	default:
		return false, ErrInvalidTransition
	}
}

// RecordClosing stores the why-listen text without adding a user message.
// It is also used when the text is synthesized by the assistant.
func (w *Wizard) RecordClosing(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	to, err := next(w.stage, evClose)
	if err != nil {
		return err
	}
	w.whyListen = text
	w.closed = true
	w.stage = to
	return nil
}

func (w *Wizard) recordResponse(text string) {
	theme := w.themes[w.index]
	r := Response{ThemeTitle: theme.Title, ChapterNumber: theme.ChapterNumber, UserExplanation: text}
	if w.index < len(w.responses) {
		w.responses[w.index] = r
		return
	}
	w.responses = append(w.responses, r)
}

// BeginThinking appends the placeholder shown while a completion is pending.
func (w *Wizard) BeginThinking() error {
	if w.thinking {
		return ErrSubmissionInFlight
	}
	w.thinking = true
	w.say(ThinkingPlaceholder)
	return nil
}

// ResolveThinking replaces the pending placeholder with text.
func (w *Wizard) ResolveThinking(text string) {
	if !w.thinking {
		return
	}
	w.thinking = false
	for i := len(w.messages) - 1; i >= 0; i-- {
		m := w.messages[i]
		if m.Role == RoleAssistant && m.Content == ThinkingPlaceholder {
			w.messages[i].Content = text
			return
		}
	}
	w.say(text)
}

// Advance moves past a confirmed theme. The transcript is cleared per theme.
func (w *Wizard) Advance() error {
	if w.thinking {
		return ErrSubmissionInFlight
	}
	last := w.index == len(w.themes)-1
	ev := evAdvanceNext
	if last {
		ev = evAdvanceLast
	}
	to, err := next(w.stage, ev)
	if err != nil {
		return err
	}

	w.stage = to
	w.messages = nil
	if last {
		w.say(closingIntro)
		w.say(closingQuestion)
		return nil
	}
	w.index++
	w.presentCurrent()
	return nil
}

// Finish completes the wizard. It only succeeds once.
func (w *Wizard) Finish() (Payload, error) {
	if w.stage == StageComplete {
		return Payload{}, ErrInvalidTransition
	}
	if w.thinking {
		return Payload{}, ErrSubmissionInFlight
	}
	if !w.Ready() {
		return Payload{}, ErrIncompleteWizard
	}
	to, err := next(w.stage, evFinish)
	if err != nil {
		return Payload{}, err
	}
	w.stage = to
	return Payload{Themes: w.Responses(), WhyListen: w.whyListen}, nil
}

func (w *Wizard) Progress() Progress {
	total := len(w.themes)
	p := Progress{CurrentTheme: w.index + 1, TotalThemes: total, Stage: w.stage}

	var step int
	switch w.stage {
	case StagePresent:
		step = 1
	case StageClarify:
		step = 2
	case StageExplain:
		step = 3
	case StageConfirm:
		step = 4
	default:
		p.CurrentTheme = total
		p.Percent = 100
		return p
	}
	p.Percent = (w.index*stepsPerTheme + step) * 100 / (total * stepsPerTheme)
	return p
}

func (w *Wizard) presentCurrent() {
	theme := w.themes[w.index]
	gist := strings.TrimSpace(theme.Gist)
	if gist == "" {
		gist = fmt.Sprintf("Let's look at %q together.", theme.Title)
	}
	w.say(gist)
	for _, idea := range theme.BigIdeas {
		if idea.Title == "" && idea.Quote == "" {
			continue
		}
		w.say(fmt.Sprintf("💡 %s\n\"%s\"", idea.Title, idea.Quote))
	}
	w.say(unpackOffer)
}

func (w *Wizard) say(text string) {
	w.messages = append(w.messages, Message{Role: RoleAssistant, Content: text})
}
