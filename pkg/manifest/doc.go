// Package manifest loads servers, teams and workloads from a YAML file.
//
//	teams:
//	  - id: team-1
//	    name: Platform
//	servers:
//	  - id: edge-1
//	    name: edge-1
//	    team: team-1
//	    address: tcp://10.0.0.5:2375
//	    role: standalone
//	    log_drain: true
//	    sentinel:
//	      enabled: true
//	      url: http://10.0.0.5:8888/health
//	    proxy:
//	      type: traefik
//	    applications:
//	      - id: app-1
//	        name: shop
//	        network: shop-net
package manifest
