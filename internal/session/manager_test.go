// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycast/relaycast/internal/catalog"
)

func newTestManager(voice *fakeVoice, rec *pipelineRecorder) *Manager {
	m := NewManager(Config{
		SelfID:      "relay-bot",
		IdleTimeout: time.Hour,
		// Keep the monitor effectively inert for manager tests.
		PollInterval: time.Hour,
	}, voice)
	m.newPipeline = rec.factory
	m.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return m
}

func chanRecord(name, url string) catalog.ChannelRecord {
	return catalog.ChannelRecord{ID: name, Name: name, URL: url}
}

func TestStartAndStop(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))

	st := m.Status()
	assert.Equal(t, StateStreaming, st.State)
	assert.Equal(t, "BBC One", st.Channel)
	assert.Equal(t, "voice-1", st.Target)
	assert.Equal(t, 1, voice.joinCount())
	assert.True(t, rec.get(0).started.Load())

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, StateIdle, m.Status().State)
	assert.Equal(t, int32(1), rec.get(0).terminated.Load())
	assert.Zero(t, voice.leaveCount(), "stop does not disconnect voice")
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	m := newTestManager(&fakeVoice{}, &pipelineRecorder{})
	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestStartTwiceKeepsSingleSession(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	require.NoError(t, m.Start(ctx, chanRecord("BBC Two", "http://s/bbc2"), "voice-2"))

	require.Equal(t, 2, rec.count())
	assert.Equal(t, int32(1), rec.get(0).terminated.Load(), "first pipeline torn down")
	assert.Zero(t, rec.get(1).terminated.Load())
	assert.Equal(t, "BBC Two", m.Status().Channel)
	assert.Equal(t, 2, voice.joinCount(), "different target joined again")
}

func TestStartSameTargetSkipsJoin(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	require.NoError(t, m.Start(ctx, chanRecord("BBC Two", "http://s/bbc2"), "voice-1"))

	assert.Equal(t, 1, voice.joinCount(), "already connected to the target")
}

func TestStartRejectsChannelWithoutURL(t *testing.T) {
	m := newTestManager(&fakeVoice{}, &pipelineRecorder{})
	err := m.Start(context.Background(), chanRecord("Broken", ""), "voice-1")
	require.Error(t, err)
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestStartJoinFailure(t *testing.T) {
	voice := &fakeVoice{joinErr: fmt.Errorf("gateway unavailable")}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)

	err := m.Start(context.Background(), chanRecord("BBC One", "http://s/bbc1"), "voice-1")
	require.Error(t, err)
	assert.Equal(t, StateIdle, m.Status().State)
	assert.Zero(t, rec.count(), "no pipeline spawned when join fails")
}

func TestPipelineExitTriggersTeardown(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	rec.get(0).exit(fmt.Errorf("exit status 1"))

	require.Eventually(t, func() bool {
		return m.Status().State == StateIdle
	}, 2*time.Second, 10*time.Millisecond, "abnormal exit must stop the session")
}

func TestCleanPipelineEndTriggersTeardown(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	rec.get(0).exit(nil)

	require.Eventually(t, func() bool {
		return m.Status().State == StateIdle
	}, 2*time.Second, 10*time.Millisecond)
}

func TestForcedStopDoesNotDoubleTeardown(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	require.NoError(t, m.Stop(ctx))

	// The forced-stop exit signature must be swallowed by the exit
	// watcher; give it a moment to misbehave.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), rec.get(0).terminated.Load())
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestLeaveStopsAndDisconnects(t *testing.T) {
	voice := &fakeVoice{}
	rec := &pipelineRecorder{}
	m := newTestManager(voice, rec)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, chanRecord("BBC One", "http://s/bbc1"), "voice-1"))
	require.NoError(t, m.Leave(ctx))

	assert.Equal(t, StateIdle, m.Status().State)
	assert.Equal(t, int32(1), rec.get(0).terminated.Load())
	assert.Equal(t, 1, voice.leaveCount())

	// Having left, a new start on the same target joins again.
	require.NoError(t, m.Start(ctx, chanRecord("BBC Two", "http://s/bbc2"), "voice-1"))
	assert.Equal(t, 2, voice.joinCount())
}
