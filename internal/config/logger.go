package config

import (
    "os"
    "strings"

    "github.com/labstack/gommon/log"
)

// logHeader renders the prefix of every line as a JSON object.
const logHeader = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

// NewLogger builds the process-wide logger.  The same instance is installed
// as echo's logger and handed to the booking service and the queue workers.
func NewLogger(prefix, level string) *log.Logger {
    l := log.New(prefix)
    l.SetOutput(os.Stdout)
    l.SetHeader(logHeader)
    l.SetLevel(parseLevel(level))
    return l
}

func parseLevel(s string) log.Lvl {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "debug":
        return log.DEBUG
    case "warn", "warning":
        return log.WARN
    case "error":
        return log.ERROR
    case "off":
        return log.OFF
    default:
        return log.INFO
    }
}
