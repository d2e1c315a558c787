// Package status aggregates container state into inventory resource statuses.
package status
