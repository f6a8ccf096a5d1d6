// Package pacing schedules outbound operations against a rate-sensitive
// backend.
//
// This package contains:
//   - Policy: backoff strategy, base delay, cap, jitter and retry bound
//   - Calculator: turns a policy and an attempt number into a delay
//   - Tracker: per-key record of the most recent attempt
//   - Controller: staggers dispatch per key and drives retry bookkeeping
//
// Operations sharing a key (subject + operation kind) are spaced apart;
// operations with different keys never block each other. The controller
// surfaces each failure to the caller instead of looping internally, so
// the decision to retry stays with the caller while the tracker keeps
// the attempt count that informs the next staggering delay.
package pacing
