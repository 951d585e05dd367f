package workload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML workload format, an alternative to the text format for
// task sets kept under version control. Numeric fields are in the user's
// resolution and may be fractional.
type File struct {
	Algorithm string       `yaml:"algorithm,omitempty"`
	Server    ServerPolicy `yaml:"server,omitempty"`
	Tasks     []TaskSpec   `yaml:"tasks"`
}

// TaskSpec is a single YAML task entry.
type TaskSpec struct {
	Kind        Kind    `yaml:"kind"`
	Release     float64 `yaml:"release,omitempty"`
	Computation float64 `yaml:"computation"`
	Period      float64 `yaml:"period,omitempty"`
	Deadline    float64 `yaml:"deadline,omitempty"`
}

// LoadYAML loads and validates a YAML workload. The returned algorithm name
// is empty when the file does not pin one.
func LoadYAML(path string) (*Workload, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read workload file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("failed to parse workload file: %w", err)
	}

	if err := validateFile(&file); err != nil {
		return nil, "", fmt.Errorf("invalid workload: %w", err)
	}

	w := &Workload{Policy: PolicyBackground}
	if file.Server != "" {
		w.Policy = file.Server
	}
	for i, spec := range file.Tasks {
		task := Task{
			ID:          i + 1,
			Kind:        spec.Kind,
			Release:     scaleTicks(spec.Release),
			Computation: scaleTicks(spec.Computation),
			Period:      scaleTicks(spec.Period),
			Deadline:    scaleTicks(spec.Deadline),
		}
		if spec.Kind == KindAperiodic {
			task.Period, task.Deadline = 0, 0
			w.Aperiodic = append(w.Aperiodic, task)
			continue
		}
		if task.Deadline == 0 {
			task.Deadline = task.Period
		}
		w.Periodic = append(w.Periodic, task)
	}
	return w, file.Algorithm, nil
}

func validateFile(file *File) error {
	switch file.Server {
	case "", PolicyBackground, PolicyPoller, PolicyDeferrable:
	default:
		return fmt.Errorf("server must be one of Background, Poller, Deferrable")
	}

	if len(file.Tasks) == 0 {
		return fmt.Errorf("at least one task must be defined")
	}

	for i, spec := range file.Tasks {
		switch spec.Kind {
		case KindPeriodic, KindSporadic, KindAperiodic:
		default:
			return fmt.Errorf("task %d: kind must be periodic, sporadic or aperiodic", i)
		}

		if spec.Computation <= 0 {
			return fmt.Errorf("task %d: computation must be greater than 0", i)
		}
		if spec.Release < 0 {
			return fmt.Errorf("task %d: release must not be negative", i)
		}
		if spec.Kind != KindAperiodic && spec.Period <= 0 {
			return fmt.Errorf("task %d: period must be greater than 0", i)
		}
		if spec.Deadline < 0 {
			return fmt.Errorf("task %d: deadline must not be negative", i)
		}
	}
	return nil
}
