//go:build !tinygo

// Package jlog centralizes structured logging for the core. On a host
// build it is backed by logrus; on a TinyGo build (see jlog_tinygo.go)
// the same call sites degrade to println, the way comboat's logDebug and
// logError wrap println today.
package jlog

import "github.com/sirupsen/logrus"

var log = logrus.New()

// SetLevel adjusts verbosity; until it is called the logger runs at
// logrus's default InfoLevel.
func SetLevel(l logrus.Level) {
	log.SetLevel(l)
}

// Debugf logs a low-volume diagnostic (fault transitions, link switches).
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Warnf logs a condition an operator should notice (bus-off, lost link).
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs a condition that indicates a bug or a hard failure
// (flash write failure, malformed internal state).
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// WithFields returns a logrus entry for call sites that want structured
// key/value fields (link, mode, fault) rather than a formatted string.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}
