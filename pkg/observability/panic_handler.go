package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic is deferred at the top of long-lived goroutines (servers, the
// pool monitor). The panic is logged with its stack and swallowed.
//
//	go func() {
//		defer observability.RecoverPanic(logger, "pool monitor")
//		...
//	}()
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		LogPanic(logger, where, r)
	}
}

// LogPanic logs a value the caller already recovered, as the HTTP recovery
// middleware does before answering 500.
func LogPanic(logger *Logger, where string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic": fmt.Sprint(r),
		"where": where,
		"stack": string(debug.Stack()),
	}).Error("Recovered from panic")
}
