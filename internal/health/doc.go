// Package health provides the liveness and readiness endpoints.
//
// Liveness always answers 200 while the process serves requests. Readiness
// runs the registered checks and answers 503 when any of them fails or when
// the checker has been put into draining mode during shutdown.
package health
