package vp9lf

import (
	"runtime"

	"github.com/pion/logging"
)

// options holds Filter configuration set through Option functions.
type options struct {
	workers       int
	kernelName    string
	loggerFactory logging.LoggerFactory
	yOnly         bool
}

// Option configures a Filter.
type Option func(*options)

func defaultOptions() options {
	return options{
		workers: runtime.GOMAXPROCS(0),
	}
}

// WithWorkers sets the number of goroutines filtering a frame. Values below
// 1 select runtime.GOMAXPROCS(0). The count is further capped by the number
// of superblock rows in the frame.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithKernel selects the edge kernel variant by name: "auto" (the default,
// chosen from the CPU features), "generic" or "lanes".
func WithKernel(name string) Option {
	return func(o *options) {
		o.kernelName = name
	}
}

// WithLoggerFactory sets the factory used to create the filter's logger.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(o *options) {
		o.loggerFactory = f
	}
}

// WithYOnly restricts filtering to the luma plane.
func WithYOnly(yOnly bool) Option {
	return func(o *options) {
		o.yOnly = yOnly
	}
}
