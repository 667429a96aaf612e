package buildhost

import (
	"context"
	"fmt"
)

// TaskAction performs the work of a task.
type TaskAction func(ctx context.Context) error

// Task is a named unit of build work.
type Task struct {
	// Name is the unique task name within the project.
	Name string `json:"name" yaml:"name"`

	// Group is a display group for listing tasks.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`

	// Description is a human-readable summary of the task.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Inputs are the files or directories the task reads.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Outputs are the directories the task writes.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// DependsOn lists task names that must complete before this task runs.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Action is invoked when the task executes.
	Action TaskAction `json:"-" yaml:"-"`
}

// TaskContainer holds the tasks registered against a project.
type TaskContainer struct {
	tasks map[string]*Task
	order []string
}

// NewTaskContainer creates an empty task container.
func NewTaskContainer() *TaskContainer {
	return &TaskContainer{
		tasks: make(map[string]*Task),
	}
}

// Register adds a task. Task names are unique.
func (c *TaskContainer) Register(task *Task) error {
	return c.RegisterAll(task)
}

// RegisterAll adds tasks as one batch. Either every task is registered or,
// when any of them is invalid or clashes with a registered task, none is.
func (c *TaskContainer) RegisterAll(tasks ...*Task) error {
	batch := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if task == nil || task.Name == "" {
			return fmt.Errorf("task name is required")
		}
		if task.Action == nil {
			return fmt.Errorf("task %s has no action", task.Name)
		}
		if _, exists := c.tasks[task.Name]; exists {
			return fmt.Errorf("task %s already registered", task.Name)
		}
		if _, dup := batch[task.Name]; dup {
			return fmt.Errorf("task %s registered twice", task.Name)
		}
		batch[task.Name] = struct{}{}
	}

	for _, task := range tasks {
		c.tasks[task.Name] = task
		c.order = append(c.order, task.Name)
	}
	return nil
}

// Get returns the named task.
func (c *TaskContainer) Get(name string) (*Task, bool) {
	t, ok := c.tasks[name]
	return t, ok
}

// All returns every task in registration order.
func (c *TaskContainer) All() []*Task {
	out := make([]*Task, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tasks[name])
	}
	return out
}

// Len returns the number of registered tasks.
func (c *TaskContainer) Len() int {
	return len(c.order)
}
