package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/qvantel/synapse/api/types"
)

// FileCollector extracts samples from the lines of a delimited file
type FileCollector struct {
	err     error
	Headers bool
	InN     int
	Out     chan types.Sample
	Path    string
	Sep     string
}

// NewFileCollector creates a new file collector instance
func NewFileCollector(headers bool, inN int, out chan types.Sample, path, sep string) *FileCollector {
	return &FileCollector{
		Headers: headers,
		InN:     inN,
		Out:     out,
		Path:    path,
		Sep:     sep,
	}
}

// Collect reads the file at the configured path and returns samples through the collector's channel. The first InN
// fields of each line are taken as inputs and the rest as targets, lines with a different number of fields than the
// first one are skipped
func (fc *FileCollector) Collect() {
	defer close(fc.Out)
	file, err := os.Open(fc.Path)
	if err != nil {
		fc.err = err
		return
	}
	defer file.Close()

	// Get file mod time for autogenerating the sample timestamps
	info, err := file.Stat()
	if err != nil {
		fc.err = err
		return
	}
	ts := info.ModTime().Unix()

	scanner := bufio.NewScanner(file)
	width := 0
	for line := 0; scanner.Scan(); line++ {
		if line == 0 && fc.Headers {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, fc.Sep)
		if width == 0 {
			if len(fields) <= fc.InN {
				fc.err = fmt.Errorf("line %d has %d fields, at least one target is required after %d inputs", line+1, len(fields), fc.InN)
				return
			}
			width = len(fields)
		}
		if len(fields) != width {
			fmt.Println("WARNING: Skipping line " + strconv.Itoa(line+1) + ", expected " + strconv.Itoa(width) + " fields")
			continue
		}
		values := make([]float64, 0, width)
		for _, field := range fields {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				fmt.Println("WARNING: Encountered incorrectly formatted float on line " + strconv.Itoa(line+1))
				break
			}
			values = append(values, value)
		}
		if len(values) != width {
			continue
		}
		fc.Out <- types.Sample{
			Inputs:    values[:fc.InN],
			Targets:   values[fc.InN:],
			TimeStamp: ts,
		}
		ts++
	}
	if err := scanner.Err(); err != nil {
		fc.err = err
	}
}

// Err returns the last recorded error during collection or nil if none were encountered
func (fc *FileCollector) Err() error {
	return fc.err
}
