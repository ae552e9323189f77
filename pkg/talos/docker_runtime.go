// Package talos answers the three runtime questions the watcher asks:
// which containers match the filter, what is a container called, and how
// many bytes has it moved. Byte counts are reported as strings because
// that is the runtime-facing contract; the CLI adapter genuinely returns
// human-readable quantities.
package talos

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/argos-watch/argos/pkg/domain"
)

// DockerRuntime queries the Docker Engine API directly.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime connects to the Docker daemon, honouring DOCKER_HOST and
// friends, with an optional socket path override.
func NewDockerRuntime(socketPath string) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if socketPath != "" {
		opts = append(opts, client.WithHost("unix://"+socketPath))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}

	return &DockerRuntime{client: cli}, nil
}

// ListContainers returns the ids of running containers whose name matches
// the filter. An empty filter matches all running containers.
func (d *DockerRuntime) ListContainers(ctx context.Context, filter string) ([]domain.ContainerID, error) {
	opts := container.ListOptions{}
	if filter != "" {
		opts.Filters = filters.NewArgs(filters.Arg("name", filter))
	}

	list, err := d.client.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	ids := make([]domain.ContainerID, 0, len(list))
	for _, c := range list {
		ids = append(ids, domain.ContainerID(c.ID))
	}
	return ids, nil
}

// ContainerName returns the container's display name without the leading
// slash Docker prepends.
func (d *DockerRuntime) ContainerName(ctx context.Context, id domain.ContainerID) (string, error) {
	info, err := d.client.ContainerInspect(ctx, string(id))
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", id, err)
	}
	return strings.TrimPrefix(info.Name, "/"), nil
}

// statsPayload is the slice of the stats JSON we care about. Decoding into
// our own struct keeps us off the SDK's moving stats types.
type statsPayload struct {
	Networks map[string]struct {
		RxBytes uint64 `json:"rx_bytes"`
		TxBytes uint64 `json:"tx_bytes"`
	} `json:"networks"`
}

// NetworkTotals returns the container's cumulative received and transmitted
// byte counts, formatted as plain decimal strings.
func (d *DockerRuntime) NetworkTotals(ctx context.Context, id domain.ContainerID) (rx, tx string, err error) {
	resp, err := d.client.ContainerStats(ctx, string(id), false)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch stats for container %s: %w", id, err)
	}
	defer resp.Body.Close()

	var stats statsPayload
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return "", "", fmt.Errorf("failed to decode stats for container %s: %w", id, err)
	}

	var rxBytes, txBytes uint64
	for _, net := range stats.Networks {
		rxBytes += net.RxBytes
		txBytes += net.TxBytes
	}

	return strconv.FormatUint(rxBytes, 10), strconv.FormatUint(txBytes, 10), nil
}
