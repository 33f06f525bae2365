package metrics

import (
	"errors"
)

// ErrGatherFailed is returned when the registry cannot be gathered.
var ErrGatherFailed = errors.New("metrics gather failed")
