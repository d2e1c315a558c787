// Package events is an in-memory pub/sub broker for server check outcomes,
// team notifications and task failures. Publish blocks only while the broker
// buffer is full; a subscriber that falls behind misses events instead of
// slowing the broker.
package events
