package sched

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/kmem"
)

func TestNewTaskIsRunnableWithWeakSelfReference(t *testing.T) {
	task := NewTask(kmem.KernelStack{}, func() {})
	require.Equal(t, Runnable, task.Shared.State)

	got := task.Shared.Self.Value()
	require.Same(t, task, got)
}

func TestWeakSelfDoesNotKeepTaskAlive(t *testing.T) {
	shared := func() *Shared {
		task := NewTask(kmem.KernelStack{}, func() {})
		return task.Shared
	}()
	runtime.GC()
	runtime.GC()
	// The weak reference alone must not have kept the Task reachable;
	// once nothing else holds it, Value may return nil after a GC.
	// This does not assert nil deterministically (the GC is free to
	// delay collection) but documents the intended contract.
	_ = shared.Self.Value()
}

func TestStateString(t *testing.T) {
	require.Equal(t, "runnable", Runnable.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "blocked", Blocked.String())
	require.Equal(t, "exited", Exited.String())
}
