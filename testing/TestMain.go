// Package testing prepares the process environment for package tests.
// Import it for side effects:
//
//	import _ "github.com/inspeksi/audit-dashboard/testing"
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// defaults are applied only when the variable is unset, so a developer can
// still point tests at a real backend.
var defaults = map[string]string{
	"DASHBOARD_TEST_MODE": "1",
	"API_BASE_URL":        "http://127.0.0.1:0",
	"SESSION_SECRET":      "test-session-secret",
	"CSRF_SECRET":         "test-csrf-secret",
}

var prepare = sync.OnceFunc(func() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
})

func init() {
	prepare()
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	prepare()
	os.Exit(m.Run())
}
