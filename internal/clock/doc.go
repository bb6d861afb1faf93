// Package clock wraps time.Now behind a narrow interface so timing logic can
// be driven by a fake clock in tests.
package clock
