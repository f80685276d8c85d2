// Package testing prepares the process environment for test binaries: test
// mode on, a throwaway session secret and quiet logs. Importing it is enough;
// packages that own a TestMain can call Run instead.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// Defaults are applied for every variable the environment leaves unset.
var Defaults = map[string]string{
	"SESSION_SECRET": "rbacgate-test-secret",
	"LOG_LEVEL":      "error",
}

var once sync.Once

// Prepare forces RBACGATE_TEST_MODE=1 and fills in Defaults. It runs once per
// process.
func Prepare() {
	once.Do(func() {
		_ = os.Setenv("RBACGATE_TEST_MODE", "1")
		for k, v := range Defaults {
			if _, set := os.LookupEnv(k); !set {
				_ = os.Setenv(k, v)
			}
		}
	})
}

func init() {
	Prepare()
}

// Run prepares the environment, runs the tests and exits with their status.
func Run(m *stdtesting.M) {
	Prepare()
	os.Exit(m.Run())
}
