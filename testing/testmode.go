// Package testing puts any test binary that imports it into test mode, so
// entrypoints return before dialing Redis or Postgres.
package testing

import (
	"os"
	"sync"
)

// TestModeEnv mirrors app.TestModeEnv without importing the app package.
const TestModeEnv = "COMPANYMAP_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		if os.Getenv(TestModeEnv) == "" {
			_ = os.Setenv(TestModeEnv, "1")
		}
	})
}

func init() {
	ensureTestMode()
}
