package testutil

import (
	"github.com/iskanderovv/filemaster/internal/logging"
)

// NullLogger returns a logger that discards all output
func NullLogger() *logging.Logger {
	return logging.Silent()
}
