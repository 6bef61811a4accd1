// Package obs contains observability utilities such as logging.
package obs

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global structured logger used by the service.
// It discards everything until InitLogger runs, so packages can log
// unconditionally in tests.
var Logger = zerolog.Nop()

// InitLogger initializes the global Logger with a JSON writer at info level.
func InitLogger() {
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}
