// Package e2e holds end-to-end tests that drive a loopback mock streaming
// server through the validator and the mocked mobile session together.
package e2e
