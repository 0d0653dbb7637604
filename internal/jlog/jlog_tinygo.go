//go:build tinygo

package jlog

// On-device builds have no logrus, no goroutines to lose output from, and
// no reason to pay for format-string reflection on a control tick. Debug
// is compiled out entirely; Warnf/Errorf fall back to println.

type noopFields map[string]interface{}

func SetLevel(int) {}

func Debugf(format string, args ...interface{}) {}

func Warnf(format string, args ...interface{}) {
	println("[WARN] " + format)
}

func Errorf(format string, args ...interface{}) {
	println("[ERROR] " + format)
}

func WithFields(fields noopFields) noopFields {
	return fields
}
