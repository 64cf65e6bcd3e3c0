package wizard

import "github.com/podbrah/podbrah-backend/apperr"

var (
	ErrEmptyInput         = apperr.New(apperr.KindValidation, "empty_input", "this podcast has no themes to explore")
	ErrDuplicateChapter   = apperr.New(apperr.KindValidation, "duplicate_chapter", "themes must have unique chapter numbers")
	ErrInvalidChoice      = apperr.New(apperr.KindValidation, "invalid_choice", "choice must be unpack or continue")
	ErrInvalidTransition  = apperr.New(apperr.KindInvariant, "invalid_transition", "that action is not available at this step")
	ErrIncompleteWizard   = apperr.New(apperr.KindConflict, "incomplete_wizard", "finish every theme and the closing question first")
	ErrSubmissionInFlight = apperr.New(apperr.KindConflict, "submission_in_flight", "a previous message is still being processed")
	ErrInvalidSnapshot    = apperr.New(apperr.KindInvariant, "invalid_snapshot", "wizard session is corrupted")
)
