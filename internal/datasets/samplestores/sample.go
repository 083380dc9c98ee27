package samplestores

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
)

// Sample is a stored training pair
type Sample struct {
	Inputs    []float64 `json:"inputs"`
	Targets   []float64 `json:"targets"`
	TimeStamp int64     `json:"@timestamp"`
}

// ID generates a string that uniquely identifies a sample. Useful for deduplication
func (s Sample) ID() string {
	hash := sha256.New()
	hash.Write([]byte(strconv.FormatInt(s.TimeStamp, 10)))
	buf := make([]byte, 8)
	for _, values := range [][]float64{s.Inputs, s.Targets} {
		// The length goes first so moving a value from the inputs to the targets changes the hash
		binary.BigEndian.PutUint64(buf, uint64(len(values)))
		hash.Write(buf)
		for _, v := range values {
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			hash.Write(buf)
		}
	}

	raw := hash.Sum(nil)
	id := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(id, raw)

	return string(id)
}

// sortSamples orders samples by timestamp (ties broken by ID so the order is stable between calls)
func sortSamples(samples []Sample, desc bool) {
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if desc {
			a, b = b, a
		}
		if a.TimeStamp != b.TimeStamp {
			return a.TimeStamp < b.TimeStamp
		}
		return a.ID() < b.ID()
	})
}
