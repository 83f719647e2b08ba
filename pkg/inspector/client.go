// Package inspector runs short-lived containers through the docker engine.
package inspector

import (
	"context"
	"io"
	"log"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// ContainerAPI is the part of the docker client the sandbox needs.
type ContainerAPI interface {
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.ContainerWaitOKBody, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options types.ContainerLogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

type DockerApi struct {
	DCli ContainerAPI
}

// New connects to the engine configured by the DOCKER_* environment.
func New() (*DockerApi, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Printf("init docker environment failed: %v", err)
		return nil, err
	}

	return &DockerApi{DCli: cli}, nil
}

func (da DockerApi) Close() error {
	return da.DCli.Close()
}

func (da DockerApi) GetDockerServerVersion(ctx context.Context) (string, error) {
	server, err := da.DCli.ServerVersion(ctx)
	if err != nil {
		return "", err
	}

	return server.Version, nil
}
