// Package report persists run summaries as JSON documents.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// Writer implements domain.ReportWriter.
type Writer struct{}

func New() *Writer { return &Writer{} }

// Write stores s as indented JSON at path, creating parent directories.
func (w *Writer) Write(path string, s domain.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (domain.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Summary{}, err
	}
	var s domain.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Summary{}, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return s, nil
}
