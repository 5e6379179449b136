// Package exitcodes defines the standard exit codes used by checkmate.
package exitcodes

// Exit code constants used by checkmate
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all converted reports contain only passing tests
// * TestFailure (1): Used when one or more reported tests failed
// * RuntimeErr (2): Used for runtime errors such as unreadable or malformed inputs
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures in the input reports
	RuntimeErr  = 2 // Runtime errors or bad inputs
)
