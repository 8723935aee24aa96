package loadtest

import "time"

// Defaults applied to zero Config fields.
const (
	DefaultAttempts     = 1000
	DefaultFrames       = 15
	DefaultTimeout      = 30 * time.Second
	DefaultWait         = 2 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	progressInterval        = time.Second
	percentageMultiplier    = 100
)
