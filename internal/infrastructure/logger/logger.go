// Package logger exposes leveled loggers for the whole service. Values
// derived from user input must pass through SanitizeForLog before being
// interpolated into a log line.
package logger

import (
	"log"
	"os"
)

var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger
)

func init() {
	flags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

	Info = log.New(os.Stdout, "INFO: ", flags)
	Warn = log.New(os.Stdout, "WARN: ", flags)
	Error = log.New(os.Stdout, "ERROR: ", flags)
	Debug = log.New(os.Stdout, "DEBUG: ", flags)
}
