// Package pipeline fronts the external format validation / conversion
// toolchain. The catalog stores the returned snapshot verbatim; derivative
// generation happens asynchronously and lands via the derivatives callback.
package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ourtextscores/internal/domain/catalog"
)

type Validator interface {
	Validate(ctx context.Context, filename string, content []byte) (catalog.ValidationSnapshot, error)
}

// AcceptAll records every upload as valid without inspecting it. Used when
// no validation toolchain is configured.
type AcceptAll struct{}

func (AcceptAll) Validate(context.Context, string, []byte) (catalog.ValidationSnapshot, error) {
	return catalog.ValidationSnapshot{Status: "ok"}, nil
}

// ExecValidator shells out to the linearize tool, which parses MusicXML/MXL
// and fails on malformed archives. Its stderr lines become validation issues.
type ExecValidator struct {
	Command string // e.g. "python3 /opt/ourtextscores/linearize.py"
	Timeout time.Duration
}

func (v *ExecValidator) Validate(ctx context.Context, filename string, content []byte) (catalog.ValidationSnapshot, error) {
	timeout := v.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return catalog.ValidationSnapshot{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return catalog.ValidationSnapshot{}, err
	}
	tmp.Close()

	parts := strings.Fields(v.Command)
	args := append(parts[1:], tmp.Name())
	cmd := exec.CommandContext(ctx, parts[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		snap := catalog.ValidationSnapshot{Status: "failed"}
		for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				snap.Issues = append(snap.Issues, catalog.ValidationIssue{Severity: "error", Message: line})
			}
		}
		return snap, nil
	}
	return catalog.ValidationSnapshot{Status: "ok"}, nil
}
