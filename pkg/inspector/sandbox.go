package inspector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/kvesta/portvuln/config"
)

// Sandbox describes one throwaway container run.
type Sandbox struct {
	Image   string
	Cmd     []string
	Timeout time.Duration
	// NetworkMode defaults to bridge.
	NetworkMode string
}

// Output holds the demultiplexed container logs.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int64
}

func SandboxLimits(networkMode string) *container.HostConfig {
	if networkMode == "" {
		networkMode = "bridge"
	}

	pids := int64(64)
	return &container.HostConfig{
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		CapAdd:         []string{"NET_RAW"},
		Resources: container.Resources{
			Memory:    512 * 1024 * 1024,
			NanoCPUs:  1_000_000_000,
			PidsLimit: &pids,
		},
		NetworkMode: container.NetworkMode(networkMode),
	}
}

// RunContainer pulls the image when missing, runs cmd and returns its
// output. The container is always removed.
func (da DockerApi) RunContainer(ctx context.Context, sb Sandbox) (*Output, error) {
	if sb.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sb.Timeout)
		defer cancel()
	}

	if err := da.ensureImage(ctx, sb.Image); err != nil {
		return nil, err
	}

	resp, err := da.DCli.ContainerCreate(ctx,
		&container.Config{
			Image: sb.Image,
			Cmd:   sb.Cmd,
		},
		SandboxLimits(sb.NetworkMode),
		nil,
		nil,
		"",
	)
	if err != nil {
		return nil, err
	}

	defer func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := da.DCli.ContainerRemove(rmCtx, resp.ID, types.ContainerRemoveOptions{Force: true}); err != nil {
			log.Printf("failed to remove container %s, error: %v", shortID(resp.ID), err)
		}
	}()

	if err = da.DCli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return nil, err
	}

	out := &Output{}

	statusCh, errCh := da.DCli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", shortID(resp.ID), err)
		}
	case status := <-statusCh:
		out.ExitCode = status.StatusCode
		if status.Error != nil {
			return nil, fmt.Errorf("container %s: %s", shortID(resp.ID), status.Error.Message)
		}
	}

	logs, err := da.DCli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, err
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err = stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, err
	}

	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()

	return out, nil
}

func (da DockerApi) ensureImage(ctx context.Context, image string) error {
	_, _, err := da.DCli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return err
	}

	log.Printf(config.Green("Pulling image %s"), image)
	rc, err := da.DCli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(ioutil.Discard, rc)
	return err
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
