package resolve

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every run in the tests is either drained or abandoned, so no worker may outlive it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
