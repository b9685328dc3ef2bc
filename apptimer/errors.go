package apptimer

import "errors"

var ErrError = errors.New("unknown error")
var ErrInvalidParam = errors.New("invalid parameters")
var ErrAlreadyStarted = errors.New("timer already started")
var ErrTimeLimitExceeded = errors.New("timeout exceeds the time limit")
