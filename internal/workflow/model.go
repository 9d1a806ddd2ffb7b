// Package workflow models CI workflow manifests: parsing, validation,
// matrix expansion and event evaluation. Nothing in here executes jobs;
// evaluation stops at deciding which job instantiations an event makes
// eligible and which it skips.
package workflow

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Workflow is a parsed CI manifest.
type Workflow struct {
	Name string            `yaml:"name,omitempty" json:"name,omitempty"`
	On   Triggers          `yaml:"on" json:"on"`
	Env  map[string]Scalar `yaml:"env,omitempty" json:"env,omitempty"`
	Jobs map[string]Job    `yaml:"jobs" json:"jobs"`
}

func (w *Workflow) UnmarshalYAML(b []byte) error {
	type plain Workflow
	var p plain
	if err := yaml.Unmarshal(b, &p); err != nil {
		return err
	}
	*w = Workflow(p)
	if !w.On.Empty() {
		return nil
	}
	// YAML 1.1 readers take an unquoted "on" key for the boolean true, in
	// which case the struct tag above never matches it.
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(b, &ms); err != nil {
		return nil
	}
	for _, item := range ms {
		if key, ok := item.Key.(bool); ok && key {
			return remarshal(item.Value, &w.On)
		}
	}
	return nil
}

// Triggers holds the events a workflow reacts to. The manifest may
// declare them as a single event name, a sequence of names, or a mapping
// with per-event filters.
type Triggers struct {
	Push             *BranchFilter `yaml:"push,omitempty" json:"push,omitempty"`
	PullRequest      *BranchFilter `yaml:"pull_request,omitempty" json:"pull_request,omitempty"`
	Schedule         []Schedule    `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	WorkflowDispatch bool          `yaml:"workflow_dispatch,omitempty" json:"workflow_dispatch,omitempty"`
}

func (t *Triggers) UnmarshalYAML(b []byte) error {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("on: %w", err)
	}
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return t.enable(val)
	case []any:
		for _, item := range val {
			name, err := scalarString(item)
			if err != nil {
				return fmt.Errorf("on: %w", err)
			}
			if err := t.enable(name); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for name, raw := range val {
			if err := t.set(name, raw); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("on: expected an event name, a sequence of names or a mapping, got %T", v)
	}
}

func (t *Triggers) enable(name string) error {
	switch name {
	case "push":
		t.Push = &BranchFilter{}
	case "pull_request":
		t.PullRequest = &BranchFilter{}
	case "workflow_dispatch":
		t.WorkflowDispatch = true
	case "schedule":
		return fmt.Errorf("on: schedule requires a cron mapping")
	default:
		return fmt.Errorf("on: unsupported event %q", name)
	}
	return nil
}

func (t *Triggers) set(name string, raw any) error {
	switch name {
	case "push":
		t.Push = &BranchFilter{}
		if raw != nil {
			return remarshal(raw, t.Push)
		}
	case "pull_request":
		t.PullRequest = &BranchFilter{}
		if raw != nil {
			return remarshal(raw, t.PullRequest)
		}
	case "schedule":
		if err := remarshal(raw, &t.Schedule); err != nil {
			return fmt.Errorf("on: schedule: %w", err)
		}
	case "workflow_dispatch":
		t.WorkflowDispatch = true
	default:
		return fmt.Errorf("on: unsupported event %q", name)
	}
	return nil
}

// Empty reports whether no trigger is declared.
func (t Triggers) Empty() bool {
	return t.Push == nil && t.PullRequest == nil && len(t.Schedule) == 0 && !t.WorkflowDispatch
}

// Kinds lists the declared trigger kinds in a fixed order.
func (t Triggers) Kinds() []EventKind {
	var kinds []EventKind
	if t.Push != nil {
		kinds = append(kinds, EventPush)
	}
	if t.PullRequest != nil {
		kinds = append(kinds, EventPullRequest)
	}
	if len(t.Schedule) > 0 {
		kinds = append(kinds, EventSchedule)
	}
	if t.WorkflowDispatch {
		kinds = append(kinds, EventWorkflowDispatch)
	}
	return kinds
}

// BranchFilter narrows push and pull_request triggers to matching
// branches. An empty filter matches everything.
type BranchFilter struct {
	Branches []string `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// Schedule is one cron entry under the schedule trigger.
type Schedule struct {
	Cron string `yaml:"cron" json:"cron"`
}

// Job is one entry under jobs. The map key is the job id; Name, when
// set, is the display name and may reference matrix axes.
type Job struct {
	Name            string            `yaml:"name,omitempty" json:"name,omitempty"`
	RunsOn          string            `yaml:"runs-on,omitempty" json:"runs_on,omitempty"`
	If              string            `yaml:"if,omitempty" json:"if,omitempty"`
	Needs           StringList        `yaml:"needs,omitempty" json:"needs,omitempty"`
	Strategy        *Strategy         `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Env             map[string]Scalar `yaml:"env,omitempty" json:"env,omitempty"`
	ContinueOnError bool              `yaml:"continue-on-error,omitempty" json:"continue_on_error,omitempty"`
	TimeoutMinutes  int64             `yaml:"timeout-minutes,omitempty" json:"timeout_minutes,omitempty"`
	Steps           []Step            `yaml:"steps,omitempty" json:"steps,omitempty"`
}

func (j *Job) matrix() *Matrix {
	if j.Strategy == nil {
		return nil
	}
	return j.Strategy.Matrix
}

// Strategy mirrors a job's strategy block.
type Strategy struct {
	Matrix      *Matrix `yaml:"matrix,omitempty" json:"matrix,omitempty"`
	FailFast    *bool   `yaml:"fail-fast,omitempty" json:"fail_fast,omitempty"`
	MaxParallel int64   `yaml:"max-parallel,omitempty" json:"max_parallel,omitempty"`
}

// Step is one step of a job: either an external action invocation (uses)
// or a shell command (run).
type Step struct {
	Name  string            `yaml:"name,omitempty" json:"name,omitempty"`
	ID    string            `yaml:"id,omitempty" json:"id,omitempty"`
	If    string            `yaml:"if,omitempty" json:"if,omitempty"`
	Uses  string            `yaml:"uses,omitempty" json:"uses,omitempty"`
	Run   string            `yaml:"run,omitempty" json:"run,omitempty"`
	Shell string            `yaml:"shell,omitempty" json:"shell,omitempty"`
	With  map[string]Scalar `yaml:"with,omitempty" json:"with,omitempty"`
	Env   map[string]Scalar `yaml:"env,omitempty" json:"env,omitempty"`
}

// StringList accepts a single scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(b []byte) error {
	var many []string
	if err := yaml.Unmarshal(b, &many); err == nil {
		*l = StringList(many)
		return nil
	}
	var one string
	if err := yaml.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = StringList{one}
	return nil
}

// Scalar is a YAML scalar normalized to its string form. Unquoted
// numbers keep their shortest representation, so a bare 3.10 reads back
// as "3.1" exactly as a YAML parser sees it, while "3.10" in quotes
// stays intact.
type Scalar string

func (s *Scalar) UnmarshalYAML(b []byte) error {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	str, err := scalarString(v)
	if err != nil {
		return err
	}
	*s = Scalar(str)
	return nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
}
