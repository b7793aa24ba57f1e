package errorvalues

import "errors"

var (
	ErrUserExists       = errors.New("such user already exists")
	ErrUserNotFound     = errors.New("user doesn't exists")
	ErrWrongCredentials = errors.New("wrong name or password")

	ErrHabitNotFound = errors.New("habit doesn't exists")
	ErrUserHasHabit  = errors.New("user already has habit with such title")
	ErrWrongOwner    = errors.New("habit belongs to different user")

	ErrCompletionNotFound  = errors.New("completion for given day doesn't exists")
	ErrCompletionInFuture  = errors.New("completion date is in the future")
	ErrReminderAlreadySent = errors.New("reminder for this day was already sent")

	ErrInvalidWindow = errors.New("invalid reminder window tag")
	ErrInvalidToken  = errors.New("invalid token")
)
