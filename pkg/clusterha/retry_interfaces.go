package clusterha

import "time"

// ErrorClassifier maps a failure onto the retry taxonomy.
type ErrorClassifier interface {
	// Classify must be a pure function of the error's content: classifying
	// the same error twice yields the same result.
	Classify(err error) Classification
}

// BackoffStrategy calculates the delay before the next reconnect attempt.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before the given attempt.
	// attempt is one-indexed (1 = first attempt waits the base interval).
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of attempts (0 = no attempts).
	MaxAttempts() int
}
