package workflow

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// EventKind names a trigger occurrence.
type EventKind string

const (
	EventPush             EventKind = "push"
	EventPullRequest      EventKind = "pull_request"
	EventSchedule         EventKind = "schedule"
	EventWorkflowDispatch EventKind = "workflow_dispatch"
)

var ErrUnsupportedEventKind = errors.New("unsupported event kind")

// ParseEventKind validates an event kind received over the wire.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case EventPush, EventPullRequest, EventSchedule, EventWorkflowDispatch:
		return k, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedEventKind, s)
}

// Event is one trigger occurrence delivered to the hub. Schedule and
// dispatch events carry no commit; their message is empty.
type Event struct {
	Kind          EventKind `json:"kind"`
	Branch        string    `json:"branch,omitempty"`
	CommitSHA     string    `json:"commit_sha,omitempty"`
	CommitMessage string    `json:"commit_message,omitempty"`
	Cron          string    `json:"cron,omitempty"`
}

func (e Event) ref() string {
	if e.Branch == "" {
		return ""
	}
	return "refs/heads/" + e.Branch
}

// CheckStatus is the planning verdict for one job instantiation.
type CheckStatus string

const (
	CheckEligible CheckStatus = "eligible"
	CheckSkipped  CheckStatus = "skipped"
)

// Instance is one expanded job: the job id plus the matrix combination
// it was instantiated with.
type Instance struct {
	JobID       string      `json:"job_id"`
	Name        string      `json:"name"`
	RunsOn      string      `json:"runs_on"`
	Combination Combination `json:"combination,omitempty"`
}

// Instances expands the job into one instance per matrix combination,
// rendering matrix references in the display name and runner label.
func (j *Job) Instances(id string) ([]Instance, error) {
	combos, err := j.matrix().Expand()
	if err != nil {
		return nil, err
	}
	instances := make([]Instance, len(combos))
	for i, combo := range combos {
		instances[i] = Instance{
			JobID:       id,
			Name:        instanceName(id, j.Name, combo),
			RunsOn:      combo.Render(j.RunsOn),
			Combination: combo,
		}
	}
	return instances, nil
}

// instanceName renders the display name of one instance. The matrix
// combination is appended unless the explicit name already references
// axes, so sibling instances stay tellable apart.
func instanceName(id, name string, combo Combination) string {
	display := id
	if name != "" {
		display = combo.Render(name)
		if strings.Contains(name, "${{") {
			return display
		}
	}
	if len(combo) == 0 {
		return display
	}
	return fmt.Sprintf("%s (%s)", display, combo)
}

// Check is one planned job instantiation with its verdict.
type Check struct {
	Instance
	Status CheckStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Plan is the outcome of evaluating one event against a manifest:
// either not triggered, or one check per job instantiation.
type Plan struct {
	WorkflowName string  `json:"workflow_name,omitempty"`
	Event        Event   `json:"event"`
	Triggered    bool    `json:"triggered"`
	Reason       string  `json:"reason,omitempty"`
	Checks       []Check `json:"checks,omitempty"`
}

// PlanOptions tune evaluation.
type PlanOptions struct {
	// SkipMarkers are commit message substrings that skip every job of a
	// commit-triggered event.
	SkipMarkers []string
}

// SkipMarker reports the first configured marker found in the event's
// commit message. Events without a commit message are never skipped.
func SkipMarker(ev Event, markers []string) (string, bool) {
	if ev.Kind != EventPush && ev.Kind != EventPullRequest {
		return "", false
	}
	if ev.CommitMessage == "" {
		return "", false
	}
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(ev.CommitMessage, marker) {
			return marker, true
		}
	}
	return "", false
}

// Evaluate decides what an event does to this workflow: whether it
// triggers at all and, per job instantiation, whether the check is
// eligible or skipped. Jobs are visited in sorted id order so plans are
// reproducible. Evaluation never executes anything.
func (w *Workflow) Evaluate(ev Event, opts PlanOptions) (*Plan, error) {
	plan := &Plan{WorkflowName: w.Name, Event: ev}
	triggered, reason, err := w.triggered(ev)
	if err != nil {
		return nil, err
	}
	if !triggered {
		plan.Reason = reason
		return plan, nil
	}
	plan.Triggered = true

	var markerSkip string
	if marker, ok := SkipMarker(ev, opts.SkipMarkers); ok {
		markerSkip = fmt.Sprintf("commit message contains %q", marker)
	}
	ctx := &EventContext{
		EventName:     string(ev.Kind),
		Ref:           ev.ref(),
		RefName:       ev.Branch,
		CommitMessage: ev.CommitMessage,
	}

	for _, id := range slices.Sorted(maps.Keys(w.Jobs)) {
		job := w.Jobs[id]
		instances, err := job.Instances(id)
		if err != nil {
			return nil, fmt.Errorf("jobs.%s: %w", id, err)
		}
		skip := markerSkip
		if skip == "" && job.If != "" {
			cond, err := ParseCondition(job.If)
			if err != nil {
				return nil, fmt.Errorf("jobs.%s.if: %w", id, err)
			}
			if !cond.Eval(ctx) {
				skip = fmt.Sprintf("condition %q is false", job.If)
			}
		}
		for _, inst := range instances {
			check := Check{Instance: inst, Status: CheckEligible}
			if skip != "" {
				check.Status = CheckSkipped
				check.Reason = skip
			}
			plan.Checks = append(plan.Checks, check)
		}
	}
	return plan, nil
}

func (w *Workflow) triggered(ev Event) (bool, string, error) {
	switch ev.Kind {
	case EventPush:
		if w.On.Push == nil {
			return false, "no push trigger", nil
		}
		return matchBranches(w.On.Push, ev.Branch)
	case EventPullRequest:
		if w.On.PullRequest == nil {
			return false, "no pull_request trigger", nil
		}
		return matchBranches(w.On.PullRequest, ev.Branch)
	case EventSchedule:
		if len(w.On.Schedule) == 0 {
			return false, "no schedule trigger", nil
		}
		if ev.Cron == "" {
			return true, "", nil
		}
		for _, s := range w.On.Schedule {
			if s.Cron == ev.Cron {
				return true, "", nil
			}
		}
		return false, fmt.Sprintf("no schedule entry matches cron %q", ev.Cron), nil
	case EventWorkflowDispatch:
		if !w.On.WorkflowDispatch {
			return false, "no workflow_dispatch trigger", nil
		}
		return true, "", nil
	default:
		return false, "", fmt.Errorf("unsupported event kind %q", ev.Kind)
	}
}

// matchBranches treats an event without branch data like an absent
// filter: only a known branch can be rejected.
func matchBranches(filter *BranchFilter, branch string) (bool, string, error) {
	if len(filter.Branches) == 0 || branch == "" {
		return true, "", nil
	}
	for _, pattern := range filter.Branches {
		if matchPattern(pattern, branch) {
			return true, "", nil
		}
	}
	return false, fmt.Sprintf("branch %q matches no filter", branch), nil
}
