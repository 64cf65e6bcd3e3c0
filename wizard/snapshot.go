package wizard

import "fmt"

// Snapshot is the serializable form of a Wizard kept in the session store.
type Snapshot struct {
	Themes    []Theme    `json:"themes"`
	Index     int        `json:"current_theme_index"`
	Stage     Stage      `json:"current_stage"`
	Responses []Response `json:"responses"`
	Messages  []Message  `json:"messages"`
	WhyListen string     `json:"why_listen,omitempty"`
	Closed    bool       `json:"closed"`
	Thinking  bool       `json:"thinking"`
}

func (w *Wizard) Snapshot() Snapshot {
	return Snapshot{
		Themes:    w.Themes(),
		Index:     w.index,
		Stage:     w.stage,
		Responses: w.Responses(),
		Messages:  w.Messages(),
		WhyListen: w.whyListen,
		Closed:    w.closed,
		Thinking:  w.thinking,
	}
}

// Restore rebuilds a Wizard, rejecting snapshots no sequence of operations could produce.
func Restore(s Snapshot) (*Wizard, error) {
	switch {
	case len(s.Themes) == 0:
		return nil, fmt.Errorf("%w: no themes", ErrInvalidSnapshot)
	case !s.Stage.Valid():
		return nil, fmt.Errorf("%w: stage %q", ErrInvalidSnapshot, s.Stage)
	case s.Index < 0 || s.Index >= len(s.Themes):
		return nil, fmt.Errorf("%w: theme index %d of %d", ErrInvalidSnapshot, s.Index, len(s.Themes))
	case len(s.Responses) > len(s.Themes):
		return nil, fmt.Errorf("%w: %d responses for %d themes", ErrInvalidSnapshot, len(s.Responses), len(s.Themes))
	}

	w := &Wizard{
		themes:    append([]Theme(nil), s.Themes...),
		index:     s.Index,
		stage:     s.Stage,
		responses: append([]Response(nil), s.Responses...),
		messages:  append([]Message(nil), s.Messages...),
		whyListen: s.WhyListen,
		closed:    s.Closed,
		thinking:  s.Thinking,
	}
	return w, nil
}
