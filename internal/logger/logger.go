package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Init sets up the global logger to write to the specified file path, and
// also to stderr when verbose is set. It returns the log file, which the
// caller is responsible for closing.
func Init(logFilePath string, verbose bool) (*os.File, error) {
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = logFile
	if verbose {
		out = io.MultiWriter(logFile, os.Stderr)
	}
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.SetPrefix("[disparity] ")
	return logFile, nil
}
