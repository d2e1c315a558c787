/*
Package api exposes hostkeeper over HTTP using gin.

Probe and metrics endpoints:

	GET /health    component health, 503 when a component is unhealthy
	GET /ready     readiness of store, scheduler and task pool
	GET /live      process liveness
	GET /metrics   Prometheus exposition

Server endpoints under /api/v1:

	GET  /servers             list registered servers
	GET  /servers/:id         one server, including its last proxy status
	POST /servers/:id/check   run a server check now and return its outcome

A check that is already running for the server answers 409. Errors use the
shape {"error": {"code": "...", "message": "..."}}.
*/
package api
