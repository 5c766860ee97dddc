package core

import (
	log "github.com/sirupsen/logrus"
)

// newLogger returns a new pre-configured logger entry tagged with the name
// of the component that owns it, so that log lines from each engine, the
// process-wide receiver, the route engine and the sockets can be told apart.
func newLogger(level log.Level, component string) *log.Entry {
	logger := log.New()

	logger.SetFormatter(&log.TextFormatter{})
	logger.SetLevel(level)

	return logger.WithField("component", component)
}
