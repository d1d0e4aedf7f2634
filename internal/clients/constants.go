package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	USER_AGENT      = "finsentiment-client/1.0 (+https://github.com/spacesedan/finsentiment)"

	// the hosted inference API only sees this many characters of input
	HF_MAX_INPUT_CHARS = 512
)
