package talos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/argos-watch/argos/pkg/domain"
)

// CLIRuntime shells out to the docker binary. Useful on hosts where only
// the CLI is reachable; its NetIO output carries human-readable units
// ("1.2MB / 617kB") which the metric parser resolves.
type CLIRuntime struct {
	// Binary is the docker executable, "docker" when empty.
	Binary string
}

func NewCLIRuntime() *CLIRuntime {
	return &CLIRuntime{Binary: "docker"}
}

func (c *CLIRuntime) run(ctx context.Context, args ...string) (string, error) {
	bin := c.Binary
	if bin == "" {
		bin = "docker"
	}
	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("docker %s failed: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CLIRuntime) ListContainers(ctx context.Context, filter string) ([]domain.ContainerID, error) {
	args := []string{"ps", "--no-trunc", "-q"}
	if filter != "" {
		args = append(args, "--filter", "name="+filter)
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	lines := strings.Split(out, "\n")
	ids := make([]domain.ContainerID, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, domain.ContainerID(line))
		}
	}
	return ids, nil
}

func (c *CLIRuntime) ContainerName(ctx context.Context, id domain.ContainerID) (string, error) {
	out, err := c.run(ctx, "inspect", "--format", "{{.Name}}", string(id))
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(out, "/"), nil
}

func (c *CLIRuntime) NetworkTotals(ctx context.Context, id domain.ContainerID) (rx, tx string, err error) {
	out, err := c.run(ctx, "stats", "--no-stream", "--format", "{{.NetIO}}", string(id))
	if err != nil {
		return "", "", err
	}
	return splitNetIO(out)
}

// splitNetIO parses docker's NetIO column, "rx / tx".
func splitNetIO(s string) (rx, tx string, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected NetIO output %q", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
