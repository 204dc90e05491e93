// Package storage persists projects and app settings as JSON files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stepwright/stepwright/internal/model"
)

// SaveProject writes the project to path as indented JSON.
func SaveProject(path string, project *model.Project) error {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// LoadProject reads a project from path.
func LoadProject(path string) (*model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}
	return &project, nil
}
