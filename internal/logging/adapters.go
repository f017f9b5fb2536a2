package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TaskLogger routes backlite messages to a zerolog logger.
type TaskLogger struct {
	Logger zerolog.Logger
}

func (l TaskLogger) Info(message string, params ...any) {
	l.Logger.Info().Fields(params).Msg(message)
}

func (l TaskLogger) Error(message string, params ...any) {
	l.Logger.Error().Fields(params).Msg(message)
}

// Printf satisfies gorm's logger.Writer so gorm output lands in the same stream.
type Printf struct {
	Logger zerolog.Logger
}

func (p Printf) Printf(format string, args ...any) {
	p.Logger.Warn().Msg(fmt.Sprintf(format, args...))
}
