package ocrextract

import (
	"context"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing input", Config{Pattern: "receipt"}},
		{"missing pattern", Config{InputPath: "scan.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestExecuteWithoutDeps(t *testing.T) {
	job, err := New(Config{InputPath: "scan.pdf", Pattern: "receipt"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := job.Execute(context.Background()); err == nil {
		t.Error("Execute() succeeded without ocr service, want error")
	}
}

func TestStatusBeforeRun(t *testing.T) {
	job, err := New(Config{InputPath: "scan.pdf", Pattern: "receipt", UseRegex: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	status, err := job.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status["input_path"] != "scan.pdf" {
		t.Errorf("status input_path = %s, want scan.pdf", status["input_path"])
	}
	if status["pattern"] != "receipt" {
		t.Errorf("status pattern = %s, want receipt", status["pattern"])
	}
	if _, ok := status["output_path"]; ok {
		t.Error("status has output_path before execution")
	}
}
