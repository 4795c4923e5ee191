package dispatch

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/acuminous/rdf/internal/config"
)

// configureLogging builds the dispatcher's own JSON slog logger, writing
// to a rotating file when notifications.log_file is set and to stderr
// otherwise; slog's process-wide default logger is not touched. Dispatcher
// processes are
// typically long-running daemons, so unbounded log growth is a real
// concern the way it isn't for short-lived CLI invocations.
func configureLogging(cfg config.Notifications) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}
