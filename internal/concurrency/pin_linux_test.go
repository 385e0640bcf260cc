//go:build linux
// +build linux

// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package concurrency

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPinCurrentThread(t *testing.T) {
	var allowed unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &allowed))
	cpu := -1
	for i := 0; i < runtime.NumCPU(); i++ {
		if allowed.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no CPU in the affinity mask")
	}

	type result struct {
		err error
		set unix.CPUSet
	}
	done := make(chan result, 1)
	go func() {
		defer runtime.UnlockOSThread()
		var r result
		if r.err = PinCurrentThread(cpu); r.err == nil {
			r.err = unix.SchedGetaffinity(0, &r.set)
			_ = UnpinCurrentThread()
		}
		done <- r
	}()
	r := <-done
	if r.err != nil {
		t.Skipf("affinity not permitted here: %v", r.err)
	}
	assert.Equal(t, 1, r.set.Count())
	assert.True(t, r.set.IsSet(cpu))
}

func TestPinCurrentThread_RejectsNegativeCPU(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		defer runtime.UnlockOSThread()
		done <- PinCurrentThread(-1)
	}()
	assert.Error(t, <-done)
}
