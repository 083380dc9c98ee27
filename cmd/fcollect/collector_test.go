package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qvantel/synapse/api/types"
)

func collect(t *testing.T, fc *FileCollector) []types.Sample {
	samples := []types.Sample{}
	go fc.Collect()
	for s := range fc.Out {
		samples = append(samples, s)
	}
	return samples
}

func TestCollect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.csv")
	data := "a,b,xor\n0,0,0\n0,1,1\n\n1,0,1\n1,1\n1,1,zero\n1,1,0\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write test data (%s)", err.Error())
	}

	fc := NewFileCollector(true, 2, make(chan types.Sample, 10), path, ",")
	samples := collect(t, fc)
	if fc.Err() != nil {
		t.Fatalf("Failed to collect data from file (%s)", fc.Err().Error())
	}
	if len(samples) != 4 {
		t.Fatalf("Expected to extract 4 samples, got: %d instead", len(samples))
	}
	last := samples[3]
	if len(last.Inputs) != 2 || last.Inputs[0] != 1 || last.Inputs[1] != 1 {
		t.Errorf("Expected inputs [1 1], got %v", last.Inputs)
	}
	if len(last.Targets) != 1 || last.Targets[0] != 0 {
		t.Errorf("Expected targets [0], got %v", last.Targets)
	}
	if samples[1].TimeStamp != samples[0].TimeStamp+1 {
		t.Errorf("Expected consecutive timestamps, got %d and %d", samples[0].TimeStamp, samples[1].TimeStamp)
	}
}

func TestCollectNoTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.txt")
	if err := os.WriteFile(path, []byte("1 2\n3 4\n"), 0644); err != nil {
		t.Fatalf("Failed to write test data (%s)", err.Error())
	}

	fc := NewFileCollector(false, 2, make(chan types.Sample, 10), path, " ")
	samples := collect(t, fc)
	if fc.Err() == nil {
		t.Error("Expected an error when the lines have no targets")
	}
	if len(samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(samples))
	}
}
