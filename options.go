package gbwt

// DefaultSampleInterval is the default distance between successive
// document-array samples along a sequence.
const DefaultSampleInterval = 1024

type options struct {
	logger         *Logger
	sampleInterval uint64
	bidirectional  bool
}

// Option configures index construction and merging.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:         NoopLogger(),
		sampleInterval: DefaultSampleInterval,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithLogger configures the progress logger. If nil is passed, logging
// is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithSampleInterval configures the distance (in steps along a
// sequence) between document-array samples. Smaller intervals speed up
// locate at the cost of index size. The first step of every sequence
// is always sampled.
func WithSampleInterval(interval uint64) Option {
	return func(o *options) {
		if interval == 0 {
			interval = 1
		}
		o.sampleInterval = interval
	}
}

// WithBidirectional configures bidirectional construction: every
// inserted path also contributes its reverse, and the index answers
// bidirectional search.
func WithBidirectional(bidirectional bool) Option {
	return func(o *options) {
		o.bidirectional = bidirectional
	}
}
