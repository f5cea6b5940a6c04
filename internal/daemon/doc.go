// Package daemon owns the scribed process lifecycle: single-instance
// locking, component startup order, the retention sweeper, and shutdown.
package daemon
