// Package event holds the process wide logger.
package event

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Log is the logger every package of the node writes to
var Log *log.Logger

// Fields type, used to pass to `WithFields`. Forwarded from logrus library
type Fields = log.Fields

func init() {
	Log = &log.Logger{
		Out:          os.Stderr,
		Formatter:    &log.TextFormatter{DisableColors: false, FullTimestamp: true},
		Hooks:        make(log.LevelHooks),
		Level:        log.InfoLevel,
		ExitFunc:     os.Exit,
		ReportCaller: false,
	}
}

// ConfigureLogging sets the verbosity of Log. With debug enabled every
// transform computed for a batch is dumped. structured switches to JSON lines
// for log collectors.
func ConfigureLogging(debug, structured bool) {
	Log.SetLevel(log.InfoLevel)
	if debug {
		Log.SetLevel(log.DebugLevel)
	}
	if structured {
		Log.SetFormatter(&log.JSONFormatter{})
	}
}
