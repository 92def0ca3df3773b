package config

import (
	"os"
	"sync"
)

// DockerHostGateway is the name Docker Desktop resolves to the host machine.
const DockerHostGateway = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// IsLoopbackHost reports whether host names the local machine.
func IsLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ResolveHostForDocker returns the host a network datasource adapter should dial.
// Inside Docker a loopback host would point at the container itself, so it is
// rewritten to DockerHostGateway. Every other host is returned unchanged.
func ResolveHostForDocker(host string) string {
	if IsRunningInDocker() && IsLoopbackHost(host) {
		return DockerHostGateway
	}
	return host
}
