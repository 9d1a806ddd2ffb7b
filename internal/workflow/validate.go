package workflow

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// ValidationError collects every problem found in a manifest so callers
// can report them all at once.
type ValidationError struct {
	Issues []string `json:"issues"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid workflow: %s", strings.Join(e.Issues, "; "))
}

var (
	jobIDPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	usesPattern   = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_./-]+@[A-Za-z0-9_./-]+$`)
)

// Validate checks the manifest top to bottom and returns a
// *ValidationError listing every issue found, or nil.
func (w *Workflow) Validate() error {
	v := &validator{}
	v.workflow(w)
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

type validator struct {
	issues []string
}

func (v *validator) addf(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

func (v *validator) workflow(w *Workflow) {
	if w.On.Empty() {
		v.addf("on: at least one trigger is required")
	}
	for i, s := range w.On.Schedule {
		if s.Cron == "" {
			v.addf("on.schedule[%d]: cron is required", i)
			continue
		}
		if _, err := ParseCron(s.Cron); err != nil {
			v.addf("on.schedule[%d]: %v", i, err)
		}
	}
	v.envKeys("env", w.Env)
	if len(w.Jobs) == 0 {
		v.addf("jobs: at least one job is required")
		return
	}
	for _, id := range slices.Sorted(maps.Keys(w.Jobs)) {
		job := w.Jobs[id]
		v.job(id, &job)
	}
	v.needsGraph(w)
}

func (v *validator) job(id string, job *Job) {
	prefix := "jobs." + id
	if !jobIDPattern.MatchString(id) {
		v.addf("%s: job id must start with a letter or _ and contain only alphanumerics, - and _", prefix)
	}
	axes := job.matrix().axisNames()
	if job.RunsOn == "" {
		v.addf("%s: runs-on is required", prefix)
	} else {
		v.matrixRefs(prefix+".runs-on", job.RunsOn, axes)
	}
	v.matrixRefs(prefix+".name", job.Name, axes)
	if job.If != "" {
		if _, err := ParseCondition(job.If); err != nil {
			v.addf("%s.if: %v", prefix, err)
		}
	}
	if job.TimeoutMinutes < 0 {
		v.addf("%s: timeout-minutes must not be negative", prefix)
	}
	v.envKeys(prefix+".env", job.Env)
	v.matrix(prefix, job)
	if len(job.Steps) == 0 {
		v.addf("%s: at least one step is required", prefix)
	}
	for i, step := range job.Steps {
		v.step(fmt.Sprintf("%s.steps[%d]", prefix, i), &step)
	}
}

func (v *validator) matrix(prefix string, job *Job) {
	m := job.matrix()
	if m != nil {
		for _, axis := range m.Axes {
			if !jobIDPattern.MatchString(axis.Name) {
				v.addf("%s.strategy.matrix: axis name %q must start with a letter or _ and contain only alphanumerics, - and _", prefix, axis.Name)
			}
			seen := make(map[string]bool, len(axis.Values))
			for _, value := range axis.Values {
				if seen[value] {
					v.addf("%s.strategy.matrix: axis %q has duplicate value %q", prefix, axis.Name, value)
				}
				seen[value] = true
			}
		}
	}
	instances, err := job.Instances(strings.TrimPrefix(prefix, "jobs."))
	if err != nil {
		v.addf("%s.strategy: %v", prefix, err)
		return
	}
	names := make(map[string]bool, len(instances))
	for _, inst := range instances {
		if names[inst.Name] {
			v.addf("%s: duplicate instantiation name %q", prefix, inst.Name)
		}
		names[inst.Name] = true
		if inst.RunsOn == "" && job.RunsOn != "" {
			v.addf("%s: runs-on resolves empty for combination (%s)", prefix, inst.Combination)
		}
	}
}

func (v *validator) step(prefix string, step *Step) {
	switch {
	case step.Uses == "" && step.Run == "":
		v.addf("%s: either uses or run is required", prefix)
	case step.Uses != "" && step.Run != "":
		v.addf("%s: uses and run are mutually exclusive", prefix)
	}
	if step.Uses != "" {
		if !strings.HasPrefix(step.Uses, "./") && !strings.HasPrefix(step.Uses, "docker://") && !usesPattern.MatchString(step.Uses) {
			v.addf("%s: uses must look like owner/repo@ref, a ./local path or a docker:// image", prefix)
		}
	}
	if step.Shell != "" && step.Run == "" {
		v.addf("%s: shell requires run", prefix)
	}
	if len(step.With) > 0 && step.Uses == "" {
		v.addf("%s: with requires uses", prefix)
	}
	if step.ID != "" && !envKeyPattern.MatchString(step.ID) {
		v.addf("%s: step id %q must start with a letter or _ and contain only alphanumerics and _", prefix, step.ID)
	}
	if step.If != "" {
		if _, err := ParseCondition(step.If); err != nil {
			v.addf("%s.if: %v", prefix, err)
		}
	}
	v.envKeys(prefix+".env", step.Env)
	for _, key := range slices.Sorted(maps.Keys(step.With)) {
		v.secretRefs(fmt.Sprintf("%s.with.%s", prefix, key), string(step.With[key]))
	}
	v.secretRefs(prefix+".run", step.Run)
}

func (v *validator) envKeys(prefix string, env map[string]Scalar) {
	for _, key := range slices.Sorted(maps.Keys(env)) {
		if !envKeyPattern.MatchString(key) {
			v.addf("%s: variable name %q must start with a letter or _ and contain only alphanumerics and _", prefix, key)
		}
		v.secretRefs(prefix+"."+key, string(env[key]))
	}
}

func (v *validator) matrixRefs(prefix, s string, axes map[string]bool) {
	for _, name := range matrixRefs(s) {
		if !axes[name] {
			v.addf("%s: references unknown matrix axis %q", prefix, name)
		}
	}
}

func (v *validator) secretRefs(prefix, s string) {
	for _, ref := range looseSecretRef.FindAllString(s, -1) {
		if !secretRef.MatchString(ref) {
			v.addf("%s: malformed secrets reference %q", prefix, ref)
		}
	}
}

func (v *validator) needsGraph(w *Workflow) {
	ids := slices.Sorted(maps.Keys(w.Jobs))
	for _, id := range ids {
		for _, need := range w.Jobs[id].Needs {
			if _, ok := w.Jobs[need]; !ok {
				v.addf("jobs.%s: needs unknown job %q", id, need)
			}
		}
	}
	const (
		white = iota
		grey
		black
	)
	state := make(map[string]int, len(w.Jobs))
	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = grey
		for _, need := range w.Jobs[id].Needs {
			if _, ok := w.Jobs[need]; !ok {
				continue
			}
			switch state[need] {
			case grey:
				return true
			case white:
				if visit(need) {
					return true
				}
			}
		}
		state[id] = black
		return false
	}
	for _, id := range ids {
		if state[id] == white && visit(id) {
			v.addf("jobs: needs form a cycle involving %q", id)
			return
		}
	}
}
