// SPDX-License-Identifier: Apache-2.0

package testset

import "github.com/joomcode/errorx"

var (
	testsetErrors = errorx.NewNamespace("testset")

	// UnknownTestSetError is raised when a filter names a test set that
	// was never registered.
	UnknownTestSetError = testsetErrors.NewType("unknown_testset")

	// UnknownTestError is raised when a filter names a test that its
	// test set does not contain.
	UnknownTestError = testsetErrors.NewType("unknown_test")

	// SetupError wraps a failure of a test set's setup phase.
	SetupError = testsetErrors.NewType("setup_failed")

	// TeardownError wraps a failure of a per-test or test-set teardown.
	TeardownError = testsetErrors.NewType("teardown_failed")

	// TestPanicError converts a panicking test into an ordinary failure
	// so the rest of the set keeps running.
	TestPanicError = testsetErrors.NewType("test_panic")

	testsetProperty = errorx.RegisterPrintableProperty("testset")
	testProperty    = errorx.RegisterPrintableProperty("test")
)

// NewUnknownTestSetError creates an error for a filter referencing an
// unregistered test set name.
func NewUnknownTestSetError(name string) error {
	return UnknownTestSetError.New("test set %s is not registered", name).
		WithProperty(testsetProperty, name)
}

// NewUnknownTestError creates an error for a filter referencing a test
// missing from the named test set.
func NewUnknownTestError(testsetName, testName string) error {
	return UnknownTestError.New("test set %s has no test named %s", testsetName, testName).
		WithProperty(testsetProperty, testsetName).
		WithProperty(testProperty, testName)
}
