/*
Package health provides the probes used to decide whether a server or an
agent answers.

Three checkers share the Checker interface:

	TCPChecker   dials an address; used for tcp:// Docker endpoints before
	             any API call is made
	PingChecker  calls Ping on anything that has one, such as a remote.Host
	HTTPChecker  expects a status in [ExpectedStatusMin, ExpectedStatusMax];
	             used against the sentinel agent's health endpoint

All runs checkers in order and stops at the first failure, which is how the
reachability gate combines the TCP probe with the Docker ping:

	checks := []health.Checker{health.NewPingChecker(host)}
	if tcp, ok := health.TCPCheckerForEndpoint(server.Address); ok {
		checks = append([]health.Checker{tcp}, checks...)
	}
	if res := health.All(ctx, checks...); !res.Healthy {
		// not reachable
	}
*/
package health
