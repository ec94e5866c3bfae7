package app

import (
	"os"
	"sync"
)

// TestModeEnv disables server startup when set to "1". Package tests set it
// through the shared testing helper so importing cmd packages stays inert.
const TestModeEnv = "DASHBOARD_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the application should skip runtime side effects.
// The environment is read once per process.
func InTestMode() bool {
	return testMode()
}
