package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// IsTraceEnabled reports whether route tracing was requested via environment.
func IsTraceEnabled() bool {
	return os.Getenv("RACKD_TRACE") != ""
}
