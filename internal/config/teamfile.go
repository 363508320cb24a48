package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// TaskSpec is one task entry of a team definition file.
type TaskSpec struct {
	ID             string   `yaml:"id"`
	ReferenceID    string   `yaml:"reference_id"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Agent          string   `yaml:"agent"`
	DependsOn      []string `yaml:"depends_on"`
	AllowParallel  bool     `yaml:"allow_parallel"`
}

// MCPServer declares an MCP server whose tools are offered to agents.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// TeamFile is a declarative team definition loaded from YAML.
type TeamFile struct {
	Name       string             `yaml:"name"`
	LogLevel   string             `yaml:"log_level"`
	Env        map[string]string  `yaml:"env"`
	Inputs     map[string]string  `yaml:"inputs"`
	Agents     []models.AgentSpec `yaml:"agents"`
	Tasks      []TaskSpec         `yaml:"tasks"`
	MCPServers []MCPServer        `yaml:"mcp_servers"`
}

// LoadTeamFile reads and validates a team definition.
func LoadTeamFile(path string) (*TeamFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read team file: %w", err)
	}

	var tf TeamFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse team file: %w", err)
	}

	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate checks structural invariants that do not need a running team.
func (tf *TeamFile) Validate() error {
	if len(tf.Agents) == 0 {
		return fmt.Errorf("team file declares no agents")
	}
	if len(tf.Tasks) == 0 {
		return fmt.Errorf("team file declares no tasks")
	}

	agents := make(map[string]bool, len(tf.Agents))
	for _, a := range tf.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if agents[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		if a.Kind != "" && !a.Kind.Valid() {
			return fmt.Errorf("agent %q has unknown kind %q", a.Name, a.Kind)
		}
		agents[a.Name] = true
	}

	ids := make(map[string]bool, len(tf.Tasks))
	for i, task := range tf.Tasks {
		if task.Description == "" {
			return fmt.Errorf("task %d has no description", i)
		}
		if !agents[task.Agent] {
			return fmt.Errorf("task %d bound to unknown agent %q", i, task.Agent)
		}
		if task.ID != "" {
			if ids[task.ID] {
				return fmt.Errorf("duplicate task id %q", task.ID)
			}
			ids[task.ID] = true
		}
	}
	return nil
}

// BuildTasks materializes the task list, minting IDs where the file omitted
// them, with defaults applied.
func (tf *TeamFile) BuildTasks() []*models.Task {
	tasks := make([]*models.Task, 0, len(tf.Tasks))
	for _, spec := range tf.Tasks {
		id := spec.ID
		if id == "" {
			id = models.NewTaskID()
		}
		tasks = append(tasks, &models.Task{
			ID:             id,
			ReferenceID:    spec.ReferenceID,
			Description:    spec.Description,
			ExpectedOutput: spec.ExpectedOutput,
			Agent:          spec.Agent,
			DependsOn:      append([]string(nil), spec.DependsOn...),
			AllowParallel:  spec.AllowParallel,
			Status:         models.TaskTodo,
		})
	}
	return tasks
}

// ApplyDefaults fills unset agent fields from application defaults.
func (tf *TeamFile) ApplyDefaults(defaults DefaultsConfig) {
	for i := range tf.Agents {
		a := &tf.Agents[i]
		if a.Kind == "" {
			a.Kind = models.AgentKindReact
		}
		if a.MaxIterations == 0 {
			a.MaxIterations = defaults.MaxIterations
		}
		if a.LLM.Provider == "" {
			a.LLM.Provider = defaults.Provider
		}
		if a.LLM.Model == "" {
			a.LLM.Model = defaults.Model
		}
	}
	if tf.LogLevel == "" {
		tf.LogLevel = defaults.LogLevel
	}
}
