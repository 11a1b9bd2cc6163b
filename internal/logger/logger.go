// Package logger builds the application's zap logger. Production environments
// get the JSON encoder with sampling; everything else gets the human-friendly
// development console.
package logger

import "go.uber.org/zap"

// New returns a logger appropriate for the given environment ("prod" selects
// the production config). The caller owns the returned logger and should
// defer Sync on shutdown.
func New(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
