package env

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	warnLogger func(format string, args ...any) = func(format string, args ...any) {
		slog.Warn(fmt.Sprintf(format, args...))
	}
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of newKey if it exists. Otherwise the first legacy
// key that is set is returned and a deprecation warning is logged once per
// key. Values are trimmed, and a blank value counts as unset.
func Lookup(newKey string, legacyKeys ...string) (string, bool) {
	if v, ok := lookupTrimmed(newKey); ok {
		return v, true
	}
	for _, oldKey := range legacyKeys {
		if v, ok := lookupTrimmed(oldKey); ok {
			logDeprecated(oldKey, newKey)
			return v, true
		}
	}
	return "", false
}

func lookupTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
