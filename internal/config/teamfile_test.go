package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

const sampleTeamFile = `
name: research-team
log_level: debug
env:
  OPENAI_API_KEY: sk-test
inputs:
  topic: golang
agents:
  - name: researcher
    role: Research Analyst
    goal: Gather facts
    kind: react
    max_iterations: 8
    tools: [calculator]
    llm:
      provider: openai
      model: gpt-4o
      temperature: 0.7
  - name: writer
    role: Writer
    goal: Write the report
    llm:
      provider: anthropic
tasks:
  - id: research
    description: "Research {topic}"
    expected_output: bullet points
    agent: researcher
  - id: write
    description: Write the report
    agent: writer
    depends_on: [research]
    allow_parallel: true
`

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTeamFile(t *testing.T) {
	tf, err := LoadTeamFile(writeTempFile(t, sampleTeamFile))
	if err != nil {
		t.Fatal(err)
	}

	if tf.Name != "research-team" {
		t.Errorf("name = %q", tf.Name)
	}
	if len(tf.Agents) != 2 || tf.Agents[0].Name != "researcher" {
		t.Fatalf("agents = %+v", tf.Agents)
	}
	if tf.Agents[0].MaxIterations != 8 {
		t.Errorf("max_iterations = %d", tf.Agents[0].MaxIterations)
	}
	if tf.Agents[0].LLM.Temperature != 0.7 {
		t.Errorf("temperature = %v", tf.Agents[0].LLM.Temperature)
	}
	if len(tf.Tasks) != 2 || tf.Tasks[1].DependsOn[0] != "research" {
		t.Fatalf("tasks = %+v", tf.Tasks)
	}
	if !tf.Tasks[1].AllowParallel {
		t.Error("allow_parallel not parsed")
	}
	if tf.Inputs["topic"] != "golang" {
		t.Errorf("inputs = %v", tf.Inputs)
	}
}

func TestTeamFileValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no agents", "tasks:\n  - description: x\n    agent: a\n"},
		{"no tasks", "agents:\n  - name: a\n"},
		{"unknown agent", "agents:\n  - name: a\ntasks:\n  - description: x\n    agent: ghost\n"},
		{"duplicate agent", "agents:\n  - name: a\n  - name: a\ntasks:\n  - description: x\n    agent: a\n"},
		{"bad kind", "agents:\n  - name: a\n    kind: psychic\ntasks:\n  - description: x\n    agent: a\n"},
		{"duplicate task id", "agents:\n  - name: a\ntasks:\n  - id: t\n    description: x\n    agent: a\n  - id: t\n    description: y\n    agent: a\n"},
	}
	for _, tc := range cases {
		if _, err := LoadTeamFile(writeTempFile(t, tc.content)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestBuildTasksMintsIDs(t *testing.T) {
	tf := &TeamFile{
		Agents: []models.AgentSpec{{Name: "a"}},
		Tasks: []TaskSpec{
			{Description: "one", Agent: "a"},
			{ID: "fixed", Description: "two", Agent: "a"},
		},
	}

	tasks := tf.BuildTasks()
	if tasks[0].ID == "" {
		t.Error("missing minted id")
	}
	if tasks[1].ID != "fixed" {
		t.Errorf("id = %q", tasks[1].ID)
	}
	if tasks[0].Status != models.TaskTodo {
		t.Errorf("status = %s", tasks[0].Status)
	}
}

func TestApplyDefaults(t *testing.T) {
	tf := &TeamFile{
		Agents: []models.AgentSpec{{Name: "a"}},
		Tasks:  []TaskSpec{{Description: "x", Agent: "a"}},
	}
	tf.ApplyDefaults(DefaultsConfig{Provider: "openai", Model: "gpt-4o", MaxIterations: 12, LogLevel: "info"})

	a := tf.Agents[0]
	if a.Kind != models.AgentKindReact || a.MaxIterations != 12 {
		t.Errorf("agent after defaults = %+v", a)
	}
	if a.LLM.Provider != "openai" || a.LLM.Model != "gpt-4o" {
		t.Errorf("llm after defaults = %+v", a.LLM)
	}
	if tf.LogLevel != "info" {
		t.Errorf("log level = %q", tf.LogLevel)
	}
}

func TestParseEnvFile(t *testing.T) {
	path := writeTempFile(t, "# comment\nOPENAI_API_KEY=sk-123\nexport OTHER=\"quoted value\"\n\nMALFORMED LINE\n")
	env, err := ParseEnvFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if env["OPENAI_API_KEY"] != "sk-123" {
		t.Errorf("env = %v", env)
	}
	if env["OTHER"] != "quoted value" {
		t.Errorf("quoted value = %q", env["OTHER"])
	}
	if len(env) != 2 {
		t.Errorf("env = %v", env)
	}
}

func TestWatchEnvFile(t *testing.T) {
	path := writeTempFile(t, "KEY=one\n")

	changed := make(chan map[string]string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = WatchEnvFile(ctx, path, func(env map[string]string) {
			changed <- env
		})
	}()

	// Give the watcher a moment to register, then rewrite the file.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("KEY=two\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case env := <-changed:
		if env["KEY"] != "two" {
			t.Errorf("env = %v", env)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire")
	}
}

func TestResolveEnvAndKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key-12345678")

	env := ResolveEnv(map[string]string{"CUSTOM": "x", "EMPTY": "${UNSET_VARIABLE_12345}"})
	if env["ANTHROPIC_API_KEY"] == "" {
		t.Error("process env not inherited")
	}
	if env["CUSTOM"] != "x" {
		t.Errorf("declared value lost: %v", env)
	}
	if _, ok := env["EMPTY"]; ok {
		t.Error("unresolved reference should be dropped")
	}

	if err := RequireKey("anthropic", env); err != nil {
		t.Errorf("RequireKey: %v", err)
	}
	if err := RequireKey("openai", map[string]string{}); err == nil {
		t.Error("expected missing key error")
	}
	if err := ValidateAPIKey("anthropic", "wrong-prefix"); err == nil {
		t.Error("expected prefix validation error")
	}
}
