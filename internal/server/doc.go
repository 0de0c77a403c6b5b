// Package server exposes the cost reports over HTTP.
//
// Routing is done with chi. Every request passes through request ID,
// real IP, logging, panic recovery and metrics middleware.
//
// Available endpoints (GET only):
//   - /                  : welcome message
//   - /total-cost        : month-to-date total
//   - /cost-by-service   : month-to-date cost per service
//   - /daily-cost-trend  : cost per day of the current month
//   - /ec2-cost          : month-to-date EC2 compute cost
//   - /docs              : Swagger UI for /openapi.json
//   - /openapi.json      : OpenAPI document
//   - /health, /ready    : liveness and readiness probes
//   - /metrics           : Prometheus metrics
//   - /version           : build information
//
// Failed reports answer 500 with {"detail": "<message>"}. Unknown routes
// answer 404 and wrong methods 405, both with the same JSON shape.
//
// Timeouts: read 15s, write 45s, idle 60s. The write timeout is longer
// than the billing API timeout so that upstream errors still reach the
// client.
package server
