// Package inference implements the client side of the GPU inference
// engine's HTTP contract: submitting a request body against a job
// type's route and polling the resulting worker-side job for
// completion. The engine's network address is resolved independently,
// by the host package's endpoint cache; this package only knows how to
// speak the submit/poll protocol once given a base URL.
package inference
