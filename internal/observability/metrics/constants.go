// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Namespace prefixes every metric name.
const Namespace = "pcmring"

// Label names.
const (
	// LabelSession identifies the capture session a series belongs to.
	LabelSession = "session"
	// LabelOutcome tells stored packets from packets that lost data.
	LabelOutcome = "outcome"
)

// Label values for LabelOutcome.
const (
	// OutcomeStored means every whole block of the packet was stored.
	OutcomeStored = "stored"
	// OutcomePartial means the ring refused part of the packet.
	OutcomePartial = "partial"
)

// Histogram bucket configuration constants.
const (
	// BucketStart64B is the starting bucket for packet size histograms.
	BucketStart64B = 64.0
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount12 defines 12 exponential buckets, 64 B to 128 KiB.
	BucketCount12 = 12
)

// Time constants.
const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)
