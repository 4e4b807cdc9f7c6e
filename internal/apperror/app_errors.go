package apperror

import "errors"

var (
	ErrParse            = errors.New("invalid connection string")
	ErrMalformedMessage = errors.New("malformed message")
	ErrLink             = errors.New("link failure")

	ErrNotConnected     = errors.New("not connected to an adversary")
	ErrAlreadyConnected = errors.New("already connected to an adversary")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrGameFinished     = errors.New("game is already finished")
	ErrInvalidCell      = errors.New("invalid cell index")
	ErrInvalidSide      = errors.New("invalid side")
)
