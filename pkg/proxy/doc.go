// Package proxy starts and wires the reverse proxy of a managed server.
//
// Standalone hosts run the proxy as the hostkeeper-proxy container; swarm
// managers run it as the hostkeeper-proxy_traefik service. ShouldStart
// refuses to start a proxy when another container already publishes port 80
// or 443.
package proxy
