package models

import "errors"

// ErrNoPresentedOptions marks a response row without a usable stored option
// set (legacy row or corrupt JSON).
var ErrNoPresentedOptions = errors.New("response has no stored presented options")
