// Package distro answers questions about the local distribution by running the
// standard inventory commands (lsb_release, ubuntu-distro-info).
package distro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Detector reports the running series and the series currently supported.
type Detector interface {
	// CurrentSeries returns the codename of the series this host runs.
	CurrentSeries(ctx context.Context) (string, error)

	// SupportedSeries returns the codenames of all supported series, ESM/ELTS
	// included, oldest first.
	SupportedSeries(ctx context.Context) ([]string, error)
}

// RunFunc runs a command and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandDetector implements Detector by shelling out.
type CommandDetector struct {
	run RunFunc
}

// NewCommandDetector creates a detector that runs real commands.
func NewCommandDetector() *CommandDetector {
	return &CommandDetector{run: runCommand}
}

// NewCommandDetectorWithRunner creates a detector using run to execute commands.
func NewCommandDetectorWithRunner(run RunFunc) *CommandDetector {
	return &CommandDetector{run: run}
}

// CurrentSeries runs `lsb_release -cs`.
func (d *CommandDetector) CurrentSeries(ctx context.Context) (string, error) {
	output, err := d.run(ctx, "lsb_release", "-cs")
	if err != nil {
		return "", fmt.Errorf("failed to detect current series: %w", err)
	}

	series := ParseSeries(output)
	if len(series) == 0 {
		return "", fmt.Errorf("lsb_release returned no series codename")
	}
	return series[0], nil
}

// SupportedSeries runs `ubuntu-distro-info --supported-esm`, which also lists
// series that only receive ESM/ELTS updates.
func (d *CommandDetector) SupportedSeries(ctx context.Context) ([]string, error) {
	output, err := d.run(ctx, "ubuntu-distro-info", "--supported-esm")
	if err != nil {
		return nil, fmt.Errorf("failed to list supported series: %w", err)
	}
	return ParseSeries(output), nil
}

// ParseSeries splits command output into whitespace-separated codenames.
func ParseSeries(output []byte) []string {
	return strings.Fields(string(output))
}

// ErrCommandNotFound is returned when an inventory command is not installed.
var ErrCommandNotFound = errors.New("command not found")

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrCommandNotFound)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s",
				name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to execute %s: %w", name, err)
	}

	return stdout.Bytes(), nil
}
