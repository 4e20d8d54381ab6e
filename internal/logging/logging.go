// Package logging constructs the process-wide structured logger. Every
// component receives its logger at construction time rather than reaching
// for a package-level global.
package logging

import "go.uber.org/zap"

// New builds a production zap logger. Callers that need a no-op logger
// for tests should use zap.NewNop().Sugar() directly.
func New() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
