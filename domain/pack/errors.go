package pack

import "errors"

// ErrInvalidPack is returned when a pack is nil or unnamed.
var ErrInvalidPack = errors.New("invalid pack")
