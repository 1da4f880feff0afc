// Package feeds polls RSS/Atom subscriptions and manages the per-item
// ingestion lifecycle.
//
// Each feed item moves through a small state machine: unseen, then
// either pending (approval mode) or processed (auto-ingest, approval,
// or rejection). A processed marker is terminal and guarantees the item
// is never queued or ingested again; pipeline failures deliberately
// leave items unseen so the next poll retries them.
package feeds
