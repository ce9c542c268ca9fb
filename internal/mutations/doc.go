// Package mutations is the table of write endpoints. Each Service method
// validates its input, asks internal/propagate which cache entries to patch,
// runs the request through the orchestrator and names the tags to invalidate
// once the server confirms.
package mutations
