/*
Package observability provides tools for monitoring the chaptree engine.

Metrics are Prometheus collectors fed by the engine's lifecycle hooks: command
counters by kind and outcome, a histogram of path depths, and a gauge of
chapters per document kept current by a session observer.
*/
package observability
