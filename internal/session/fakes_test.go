// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeVoice records transport calls and serves scripted occupancy.
type fakeVoice struct {
	mu        sync.Mutex
	joins     []string
	leaves    int
	script    [][]Occupant
	scriptIdx int
	joinErr   error
}

func (v *fakeVoice) Join(ctx context.Context, target string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.joinErr != nil {
		return v.joinErr
	}
	v.joins = append(v.joins, target)
	return nil
}

func (v *fakeVoice) Leave(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	return nil
}

// Occupants pops the script one entry per poll, repeating the last
// entry once exhausted.
func (v *fakeVoice) Occupants(ctx context.Context, target string) ([]Occupant, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.script) == 0 {
		return nil, nil
	}
	occ := v.script[v.scriptIdx]
	if v.scriptIdx < len(v.script)-1 {
		v.scriptIdx++
	}
	return occ, nil
}

func (v *fakeVoice) Play(ctx context.Context, r io.Reader) error {
	<-ctx.Done()
	return ctx.Err()
}

func (v *fakeVoice) joinCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.joins)
}

func (v *fakeVoice) leaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leaves
}

// fakePipeline is a controllable Pipeline. Tests end it by closing
// finish or by calling Terminate through the manager.
type fakePipeline struct {
	url        string
	done       chan error
	started    atomic.Bool
	terminated atomic.Int32
	sendOnce   sync.Once
	startErr   error
}

func newFakePipeline(url string) *fakePipeline {
	return &fakePipeline{url: url, done: make(chan error, 1)}
}

func (p *fakePipeline) Start(ctx context.Context) (io.ReadCloser, error) {
	if p.startErr != nil {
		return nil, p.startErr
	}
	p.started.Store(true)
	return io.NopCloser(strings.NewReader("")), nil
}

func (p *fakePipeline) Done() <-chan error { return p.done }

func (p *fakePipeline) Terminate(grace time.Duration) error {
	p.terminated.Add(1)
	p.sendOnce.Do(func() { p.done <- ErrForcedStop })
	return nil
}

// exit simulates the process ending on its own.
func (p *fakePipeline) exit(err error) {
	p.sendOnce.Do(func() { p.done <- err })
}

func (p *fakePipeline) StderrTail(n int) []string {
	return []string{"fake stderr"}
}

// pipelineRecorder is a factory that remembers every pipeline it made.
type pipelineRecorder struct {
	mu      sync.Mutex
	created []*fakePipeline
}

func (r *pipelineRecorder) factory(cfg StreamConfig, url string) Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := newFakePipeline(url)
	r.created = append(r.created, p)
	return p
}

func (r *pipelineRecorder) get(i int) *fakePipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.created) {
		return nil
	}
	return r.created[i]
}

func (r *pipelineRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}
