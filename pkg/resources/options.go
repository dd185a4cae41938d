package resources

import "go.uber.org/zap"

// Option sets options for adjusting resources
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	policy Policy
}

// WithLogger sets the logger used to report corrective actions. It defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l == nil {
			s.logger = zap.NewNop()
			return
		}
		s.logger = l
	}
}

// WithPolicy sets the cluster policy. It defaults to Rackham().
func WithPolicy(p Policy) Option {
	return func(s *settings) {
		s.policy = p
	}
}

func defaultSettings() settings {
	return settings{
		logger: zap.NewNop(),
		policy: Rackham(),
	}
}

func newSettings(opts ...Option) settings {
	s := defaultSettings()
	for _, apply := range opts {
		apply(&s)
	}
	return s
}
