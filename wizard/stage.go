package wizard

type Stage string

const (
	StagePresent   Stage = "present"
	StageClarify   Stage = "clarify"
	StageExplain   Stage = "explain"
	StageConfirm   Stage = "confirm"
	StageWhyListen Stage = "why_listen"
	StageComplete  Stage = "complete"
)

func (s Stage) Valid() bool {
	switch s {
	case StagePresent, StageClarify, StageExplain, StageConfirm, StageWhyListen, StageComplete:
		return true
	}
	return false
}

// capturesExplanation reports whether free text at this stage is the user's
// explanation of the current theme.
func (s Stage) capturesExplanation() bool {
	return s == StagePresent || s == StageClarify || s == StageExplain
}

type event string

const (
	evUnpack      event = "unpack"
	evContinue    event = "continue"
	evExplain     event = "explain"
	evAdvanceNext event = "advance_next"
	evAdvanceLast event = "advance_last"
	evClose       event = "close"
	evFinish      event = "finish"
)

var transitions = map[Stage]map[event]Stage{
	StagePresent: {
		evUnpack:   StageClarify,
		evContinue: StageExplain,
		evExplain:  StageConfirm,
	},
	StageClarify: {evExplain: StageConfirm},
	StageExplain: {evExplain: StageConfirm},
	StageConfirm: {
		evAdvanceNext: StagePresent,
		evAdvanceLast: StageWhyListen,
	},
	StageWhyListen: {
		evClose:  StageWhyListen,
		evFinish: StageComplete,
	},
}

func next(from Stage, ev event) (Stage, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, ErrInvalidTransition
	}
	return to, nil
}
