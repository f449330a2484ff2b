package app

import (
	"os"
	"sync"
)

const testModeEnv = "NAGUARA_TEST_MODE"

// InTestMode reports whether NAGUARA_TEST_MODE=1. The binaries exit early
// under it so test harnesses can import them without side effects.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})
