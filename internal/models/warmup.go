package models

import (
	"fmt"
	"strings"
	"time"
)

// WarmupStatus is the state of a comparison warmup.
type WarmupStatus string

const (
	WarmupIdle    WarmupStatus = "idle"
	WarmupRunning WarmupStatus = "running"
	WarmupReady   WarmupStatus = "ready"
	WarmupQueued  WarmupStatus = "queued"
	WarmupFailed  WarmupStatus = "failed"
)

// WarmupRequest identifies a comparison and its parameters.
type WarmupRequest struct {
	SubjectA    string `json:"subject_a" binding:"required"`
	SubjectB    string `json:"subject_b" binding:"required"`
	HorizonDays int    `json:"horizon_days"`
}

// Normalized lowercases and trims the subjects so that casing and padding do not split the cache.
func (r WarmupRequest) Normalized() WarmupRequest {
	r.SubjectA = strings.ToLower(strings.TrimSpace(r.SubjectA))
	r.SubjectB = strings.ToLower(strings.TrimSpace(r.SubjectB))
	return r
}

// Key returns the cache key scoped to the subject pair and parameters.
func (r WarmupRequest) Key() string {
	n := r.Normalized()
	return fmt.Sprintf("forecast:%s:%s:h%d", n.SubjectA, n.SubjectB, n.HorizonDays)
}

// ComparisonBundle is the cached product of a warmup.
type ComparisonBundle struct {
	Key         string             `json:"key"`
	SubjectA    string             `json:"subject_a"`
	SubjectB    string             `json:"subject_b"`
	HorizonDays int                `json:"horizon_days"`
	BundleA     *ForecastBundle    `json:"bundle_a,omitempty"`
	BundleB     *ForecastBundle    `json:"bundle_b,omitempty"`
	Gap         *GapForecastResult `json:"gap,omitempty"`
	Confidence  ConfidenceResult   `json:"confidence"`
	Partial     bool               `json:"partial"`
	Errors      []string           `json:"errors,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ForecastID identifies the comparison forecast for verification records.
func (c *ComparisonBundle) ForecastID() string {
	var hashA, hashB string
	if c.BundleA != nil {
		hashA = c.BundleA.Hash
	}
	if c.BundleB != nil {
		hashB = c.BundleB.Hash
	}
	return hashA + ":" + hashB
}

// WarmupResult is what callers of Warmup and Status receive.
type WarmupResult struct {
	Key    string            `json:"key"`
	Status WarmupStatus      `json:"status"`
	Bundle *ComparisonBundle `json:"bundle,omitempty"`
	Stale  bool              `json:"stale"`
	Error  string            `json:"error,omitempty"`
}

// StatusRecord is the last terminal state written for a key.
type StatusRecord struct {
	Status    WarmupStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CacheEntry wraps a cached comparison with its freshness deadline.
// An entry past FreshUntil is stale: still servable while a recomputation runs.
type CacheEntry struct {
	Bundle     *ComparisonBundle `json:"bundle"`
	StoredAt   time.Time         `json:"stored_at"`
	FreshUntil time.Time         `json:"fresh_until"`
}

// IsFresh reports whether the entry can be served without recomputation.
func (e *CacheEntry) IsFresh(now time.Time) bool {
	return e != nil && e.Bundle != nil && now.Before(e.FreshUntil)
}
