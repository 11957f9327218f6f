// Package taskpool provides a sequential task pool: a FIFO queue that
// executes one unit of work at a time against a fixed work function,
// records each run's lifecycle and outcome in a bounded history, and
// supports introspection and graceful shutdown. It is intended for
// serializing access to resources that cannot tolerate concurrent use,
// like rate-limited APIs or single-connection devices.
package taskpool
