// Tabula CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
// It is the main harness for handling nearly all dev operations.
package main

import (
	"context"

	"dagger/tabula/internal/dagger"
)

// Tabula is the main module for the Tabula CI/CD pipeline
type Tabula struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Tabula CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp"]
	source *dagger.Directory,
) *Tabula {
	return &Tabula{
		Source: source,
	}
}

// goContainer returns a Go container with the Go caches and the project
// source mounted. The sqlite driver is pure Go, so CGO stays off.
//
// It is the shared foundation for tests, builds, and linting.
func (t *Tabula) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the tabula unit tests via "go test"
func (t *Tabula) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
