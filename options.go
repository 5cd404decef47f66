package diskalloc

import "log/slog"

type options struct {
	capacity int64
	dir      string
	logger   *slog.Logger
}

// Option configures arena construction.
type Option func(*options)

// WithCapacity sets the reservation cap in bytes. The cap is virtual
// address space, not disk: it bounds how far the arena can ever grow and
// must fit in one contiguous mapping on the host. Construction fails with
// a MappingFailed error when the OS cannot honor it.
func WithCapacity(capacity int64) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

// WithDir overrides the directory New places its private backing file in.
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithLogger attaches a logger for arena lifecycle events. Allocation
// paths never log.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(opts []Option) options {
	o := options{
		capacity: DefaultCapacity,
		dir:      DefaultDir,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
