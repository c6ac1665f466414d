package toolexec

import (
	"context"
	"errors"
	"sort"
)

// DockerRunner executes tools inside a container image. Host paths are
// mounted at identical container paths, so the same Command works under
// either runner without rewriting arguments.
type DockerRunner struct {
	image  string
	binary string
	host   Runner
}

// DockerOption configures the docker runner.
type DockerOption func(*DockerRunner)

// WithDockerBinary overrides the docker executable name.
func WithDockerBinary(binary string) DockerOption {
	return func(r *DockerRunner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithHostRunner injects the runner used to invoke docker itself
// (primarily for tests).
func WithHostRunner(host Runner) DockerOption {
	return func(r *DockerRunner) {
		if host != nil {
			r.host = host
		}
	}
}

// NewDockerRunner constructs a containerized runner for the given image.
func NewDockerRunner(image string, opts ...DockerOption) (*DockerRunner, error) {
	if image == "" {
		return nil, errors.New("docker image required")
	}
	runner := &DockerRunner{image: image, binary: "docker", host: NewNativeRunner()}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run wraps the command in docker run and delegates to the host runner.
func (r *DockerRunner) Run(ctx context.Context, command Command) (Outcome, error) {
	args := []string{"run", "--rm"}
	for _, mount := range command.Mounts {
		spec := mount.HostPath + ":" + mount.ContainerPath
		if mount.ContainerPath == "" {
			spec = mount.HostPath + ":" + mount.HostPath
		}
		if mount.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	keys := make([]string, 0, len(command.Env))
	for key := range command.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-e", key+"="+command.Env[key])
	}
	if command.Dir != "" {
		args = append(args, "-w", command.Dir)
	}
	args = append(args, r.image, command.Binary)
	args = append(args, command.Args...)

	wrapped := Command{
		Binary:  r.binary,
		Args:    args,
		Timeout: command.Timeout,
		LogPath: command.LogPath,
	}
	return r.host.Run(ctx, wrapped)
}

var _ Runner = (*DockerRunner)(nil)
