package buildhost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/openfroyo/resgen/pkg/telemetry"
)

// recorder captures the order in which task actions ran.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) action(name string, err error) TaskAction {
	return func(ctx context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return err
	}
}

func (r *recorder) ran(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.order {
		if n == name {
			return true
		}
	}
	return false
}

func (r *recorder) index(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestExecutor_NilGraph(t *testing.T) {
	_, err := NewExecutor().Run(context.Background(), nil, RunOptions{})
	if err == nil {
		t.Fatal("Expected error for nil graph, got nil")
	}
}

func TestExecutor_RunsDependenciesFirst(t *testing.T) {
	rec := &recorder{}
	tasks := []*Task{
		{Name: "shared", Group: "strings", Action: rec.action("shared", nil)},
		{Name: "android", Group: "strings", DependsOn: []string{"shared"}, Action: rec.action("android", nil)},
		{Name: "ios", Group: "strings", DependsOn: []string{"shared"}, Action: rec.action("ios", nil)},
	}
	g, err := BuildTaskGraph(tasks)
	if err != nil {
		t.Fatalf("BuildTaskGraph() error = %v", err)
	}

	run, err := NewExecutor(WithMaxParallel(2), WithTelemetry(telemetry.Noop())).
		Run(context.Background(), g, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !run.Succeeded() {
		t.Errorf("Expected all tasks to succeed, summary %+v", run.Summary)
	}
	if run.Summary.Total != 3 || run.Summary.Succeeded != 3 {
		t.Errorf("Unexpected summary %+v", run.Summary)
	}
	if rec.index("shared") != 0 {
		t.Errorf("Expected shared task to run first, order %v", rec.order)
	}
	if run.ID == "" {
		t.Error("Expected run ID")
	}
}

func TestExecutor_SkipsDependentsOfFailedTask(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	tasks := []*Task{
		{Name: "a", Action: rec.action("a", boom)},
		{Name: "b", DependsOn: []string{"a"}, Action: rec.action("b", nil)},
		{Name: "c", Action: rec.action("c", nil)},
	}
	g, _ := BuildTaskGraph(tasks)

	run, err := NewExecutor().Run(context.Background(), g, RunOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected task error, got %v", err)
	}

	if rec.ran("b") {
		t.Error("Expected dependent of failed task to be skipped")
	}
	if !rec.ran("c") {
		t.Error("Expected independent task to run")
	}
	if run.Results["a"].Status != TaskStatusFailed {
		t.Errorf("Expected a failed, got %s", run.Results["a"].Status)
	}
	if run.Results["b"].Status != TaskStatusSkipped {
		t.Errorf("Expected b skipped, got %s", run.Results["b"].Status)
	}
	if run.Summary.Failed != 1 || run.Summary.Skipped != 1 || run.Summary.Succeeded != 1 {
		t.Errorf("Unexpected summary %+v", run.Summary)
	}
}

func TestExecutor_FailFastCancelsLaterLevels(t *testing.T) {
	rec := &recorder{}
	tasks := []*Task{
		{Name: "a", Action: rec.action("a", errors.New("boom"))},
		{Name: "b", Action: rec.action("b", nil)},
		{Name: "c", DependsOn: []string{"b"}, Action: rec.action("c", nil)},
	}
	g, _ := BuildTaskGraph(tasks)

	run, err := NewExecutor().Run(context.Background(), g, RunOptions{FailFast: true})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if rec.ran("c") {
		t.Error("Expected later level not to run")
	}
	if run.Results["c"].Status != TaskStatusCancelled {
		t.Errorf("Expected c cancelled, got %s", run.Results["c"].Status)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	rec := &recorder{}
	g, _ := BuildTaskGraph([]*Task{{Name: "a", Action: rec.action("a", nil)}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := NewExecutor().Run(ctx, g, RunOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if rec.ran("a") {
		t.Error("Expected no task to run")
	}
	if run.Summary.Cancelled != 1 {
		t.Errorf("Expected 1 cancelled task, got %+v", run.Summary)
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := map[TaskStatus]bool{
		TaskStatusPending:   false,
		TaskStatusRunning:   false,
		TaskStatusSucceeded: true,
		TaskStatusFailed:    true,
		TaskStatusSkipped:   true,
		TaskStatusCancelled: true,
	}
	for status, want := range tests {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestExecutor_TaskContextCarriesLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "resgen.log")
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = logFile
	cfg.Metrics.Enabled = false

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("NewTelemetry() error = %v", err)
	}

	tasks := []*Task{{
		Name:  "generateMRStringsCommonMain",
		Group: "strings",
		Action: func(ctx context.Context) error {
			telemetry.FromContext(ctx).Info("Generated MR strings")
			return nil
		},
	}}
	g, err := BuildTaskGraph(tasks)
	if err != nil {
		t.Fatalf("BuildTaskGraph() error = %v", err)
	}

	if _, err := NewExecutor(WithTelemetry(tel)).Run(context.Background(), g, RunOptions{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	var found bool
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "Generated MR strings") {
			found = true
			if !strings.Contains(line, `"task":"generateMRStringsCommonMain"`) {
				t.Errorf("Expected task field on the action log entry, got %s", line)
			}
		}
	}
	if !found {
		t.Errorf("Expected the action log entry in the configured output, got:\n%s", data)
	}
}
