package main

import (
	"math"
	"testing"
)

func TestSummarizeColumn(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5}
	got := summarizeColumn("Mini", values)

	if got.Name != "Mini" {
		t.Errorf("Name = %q, want Mini", got.Name)
	}
	if math.Abs(got.Mean-2.8) > 1e-12 {
		t.Errorf("Mean = %g, want 2.8", got.Mean)
	}
	if got.Min != 1 || got.Max != 5 {
		t.Errorf("Min/Max = %g/%g, want 1/5", got.Min, got.Max)
	}
	if got.Median != 3 {
		t.Errorf("Median = %g, want 3", got.Median)
	}
	// Sample standard deviation of {3,1,4,1,5}
	if want := math.Sqrt(3.2); math.Abs(got.StdDev-want) > 1e-12 {
		t.Errorf("StdDev = %g, want %g", got.StdDev, want)
	}
}

func TestSummarizeColumnDoesNotMutate(t *testing.T) {
	values := []float64{9, 2, 7}
	summarizeColumn("age", values)
	if values[0] != 9 || values[1] != 2 || values[2] != 7 {
		t.Errorf("input slice mutated: %v", values)
	}
}
