// Package nomad derives job identities from container names and issues job
// stop calls against the Nomad HTTP API.
package nomad

import (
	"errors"

	"github.com/argos-watch/argos/pkg/domain"
)

// Nomad names a task's container "<jobName>-<allocID>" where allocID is a
// 36-character UUID. The suffix is therefore fixed-width: one hyphen plus
// 36 characters drawn from hex digits and hyphens.
const allocSuffixLen = 37

// ErrNoJobName is returned when a container name does not carry a valid
// allocation suffix. Not fatal: the caller degrades the stop to a no-op.
var ErrNoJobName = errors.New("container name has no derivable job name")

// DeriveJobName extracts the job name from a container's display name by
// stripping the allocation-id suffix. It is a pure function; validation
// failures yield ErrNoJobName.
func DeriveJobName(containerName string) (domain.JobName, error) {
	if len(containerName) <= allocSuffixLen {
		return "", ErrNoJobName
	}

	job := containerName[:len(containerName)-allocSuffixLen]
	suffix := containerName[len(containerName)-allocSuffixLen:]

	if suffix[0] != '-' {
		return "", ErrNoJobName
	}
	for i := 1; i < len(suffix); i++ {
		if !isHexOrHyphen(suffix[i]) {
			return "", ErrNoJobName
		}
	}

	return domain.JobName(job), nil
}

func isHexOrHyphen(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	case c == '-':
		return true
	}
	return false
}
