package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read on every UI message, so it is an atomic rather than
// a plain bool that tests could race on.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("EDGEBOARD_TRACE") != "")
}

// TraceEnabled reports whether EDGEBOARD_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
