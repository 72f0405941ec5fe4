package cowtarget

import "github.com/sirupsen/logrus"

// Default tunables, per spec.md §4.6 ("job pool (capacity >= 256...)",
// "worker pool (... unbounded concurrency hint)").
const (
	DefaultJobPoolCapacity   = 256
	DefaultWorkerConcurrency = 0 // 0 means unbounded, matching the spec's hint
)

// activateOptions holds configuration gathered from Option values passed to
// Activate, following the teacher's functional-options convention
// (options.go in the teacher repo).
type activateOptions struct {
	jobPoolCapacity   int
	workerConcurrency int
	logger            logrus.FieldLogger
}

func defaultActivateOptions() *activateOptions {
	return &activateOptions{
		jobPoolCapacity:   DefaultJobPoolCapacity,
		workerConcurrency: DefaultWorkerConcurrency,
		logger:            logrus.StandardLogger(),
	}
}

// Option configures how a Target is activated.
type Option func(*activateOptions)

// WithJobPoolCapacity overrides the number of pre-allocated CoW job
// records. Must be at least 1; values below spec.md's recommended minimum
// of 256 are honored but not recommended outside tests.
func WithJobPoolCapacity(n int) Option {
	return func(o *activateOptions) {
		if n > 0 {
			o.jobPoolCapacity = n
		}
	}
}

// WithWorkerConcurrency caps the number of goroutines the worker pool will
// run concurrently. 0 (the default) leaves it unbounded.
func WithWorkerConcurrency(n int) Option {
	return func(o *activateOptions) {
		if n >= 0 {
			o.workerConcurrency = n
		}
	}
}

// WithLogger sets the structured logger used for activation, teardown, and
// job-failure diagnostics. The default is logrus's package-level standard
// logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *activateOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
