// Package jobs implements the background tasks a server check submits:
// storage usage alerts, the sentinel monitoring agent and the log drain.
package jobs
