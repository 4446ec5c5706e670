package cron

import (
	"context"
	"testing"
)

type namedJob struct{ name string }

func (j *namedJob) Name() string              { return j.name }
func (j *namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	first := &namedJob{name: "first"}
	second := &namedJob{name: "second"}

	registry := NewRegistry(first)
	registry.Register(second)
	registry.Register(nil) // ignored

	names := registry.Names()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestRegistryJobsIsACopy(t *testing.T) {
	registry := NewRegistry(&namedJob{name: "only"})

	jobs := registry.Jobs()
	jobs[0] = nil

	if registry.Jobs()[0] == nil {
		t.Fatal("mutating the returned slice reached the registry")
	}
}
