package forecast

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

type hashPoint struct {
	Date  string  `json:"d"`
	Value float64 `json:"v"`
}

type hashInput struct {
	Subject       string      `json:"subject"`
	EngineVersion string      `json:"engine_version"`
	Tail          []hashPoint `json:"tail"`
}

// Hash digests the subject, the trailing tailLength points of the history and the engine version.
// The input is serialized as a fixed-order struct, so equal inputs always give equal hashes.
func Hash(subject string, dates []string, values []float64, engineVersion string, tailLength int) string {
	n := min(len(dates), len(values))
	start := 0
	if tailLength > 0 && n > tailLength {
		start = n - tailLength
	}
	in := hashInput{Subject: subject, EngineVersion: engineVersion, Tail: make([]hashPoint, 0, n-start)}
	for i := start; i < n; i++ {
		in.Tail = append(in.Tail, hashPoint{Date: dates[i], Value: values[i]})
	}

	// Marshal of a struct of strings and finite floats cannot fail.
	payload, _ := json.Marshal(in)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
