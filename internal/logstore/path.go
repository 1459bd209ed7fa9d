package logstore

import (
	"strings"
)

// Placeholder tokens recognized in a path template.
const (
	TokenExecID  = "${job.execid}"
	TokenJobID   = "${job.id}"
	TokenProject = "${job.project}"
)

// DefaultPathTemplate is used when no path is configured.
const DefaultPathTemplate = "rundeck/projects/" + TokenProject + "/" + TokenExecID + ".rdlog"

// Execution context keys supplied by the host.
const (
	KeyExecID  = "execid"
	KeyJobID   = "id"
	KeyProject = "project"
)

// ExecutionContext carries the per-execution values used to expand a path
// template. Missing keys expand to the empty string.
type ExecutionContext map[string]string

// NewExecutionContext builds an ExecutionContext, omitting empty values.
func NewExecutionContext(execID, jobID, project string) ExecutionContext {
	ctx := ExecutionContext{}
	if execID != "" {
		ctx[KeyExecID] = execID
	}
	if jobID != "" {
		ctx[KeyJobID] = jobID
	}
	if project != "" {
		ctx[KeyProject] = project
	}
	return ctx
}

// Get returns the value for key, or "" if absent. Safe on a nil context.
func (c ExecutionContext) Get(key string) string {
	return c[key]
}

// ExpandPath substitutes the recognized tokens in template with values from
// ctx and normalizes slashes. Leading slashes are removed and runs of slashes
// collapse to one; a trailing slash is kept. Unknown ${...} tokens are left as-is.
func ExpandPath(template string, ctx ExecutionContext) string {
	result := strings.TrimLeft(template, "/")

	result = strings.NewReplacer(
		TokenExecID, ctx.Get(KeyExecID),
		TokenJobID, ctx.Get(KeyJobID),
		TokenProject, ctx.Get(KeyProject),
	).Replace(result)

	return collapseSlashes(result)
}

func collapseSlashes(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prevSlash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ResolvePath applies the template policy and expands template against ctx.
//
// A template without ${job.execid} must end in "/"; such a directory-style
// template gets "${job.execid}.rdlog" appended before expansion. The expanded
// result must be non-empty and must not end in "/".
func ResolvePath(template string, ctx ExecutionContext) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}

	effective := template
	if !strings.Contains(template, TokenExecID) {
		effective = template + "/" + TokenExecID + ".rdlog"
	}

	// an empty leading value can reintroduce a leading slash
	expanded := strings.TrimLeft(ExpandPath(effective, ctx), "/")
	if strings.TrimSpace(expanded) == "" {
		return "", configErrorf("expanded value of path was empty")
	}
	if strings.HasSuffix(expanded, "/") {
		return "", configErrorf("expanded value of path must not end with /: %q", expanded)
	}
	return expanded, nil
}

// ValidateTemplate checks the static shape of template without expanding it.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return configErrorf("path was not set")
	}
	if !strings.Contains(template, TokenExecID) && !strings.HasSuffix(template, "/") {
		return configErrorf("path must contain %s or end with /", TokenExecID)
	}
	return nil
}
