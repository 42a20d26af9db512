package vapi

import (
	"context"
	"sync"
	"time"
)

// ScriptStep is one event in a fake call's playback script.
type ScriptStep struct {
	Delay time.Duration
	Event Event
}

// FakeConnector plays a scripted event stream instead of dialing out.
// Every call starts with a call-start and, when the script does not end
// the call itself, a stop request produces the call-end. A non-nil
// startErr makes every NewCall fail with it.
type FakeConnector struct {
	script   []ScriptStep
	startErr error

	mu    sync.Mutex
	calls int
}

func NewFake(script []ScriptStep, startErr error) *FakeConnector {
	return &FakeConnector{script: script, startErr: startErr}
}

func (f *FakeConnector) Name() string { return "fake" }

// Calls reports how many calls were opened, for assertions.
func (f *FakeConnector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeConnector) NewCall(_ context.Context, _ CallConfig) (Call, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	fc := &fakeCall{
		callID:  "fake-call",
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go fc.run(f.script)
	return fc, nil
}

type fakeCall struct {
	callID string

	events  chan Event
	done    chan struct{}
	stopped chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once

	mu       sync.Mutex
	fedBytes int
}

func (c *fakeCall) ID() string { return c.callID }

func (c *fakeCall) Events() <-chan Event { return c.events }

func (c *fakeCall) Feed(pcm []byte) {
	c.mu.Lock()
	c.fedBytes += len(pcm)
	c.mu.Unlock()
}

// FedBytes reports how much audio was fed, for assertions.
func (c *fakeCall) FedBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fedBytes
}

func (c *fakeCall) Stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

func (c *fakeCall) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeCall) run(script []ScriptStep) {
	defer close(c.events)

	c.emit(CallStartEvent{CallID: c.callID})

	for _, step := range script {
		select {
		case <-time.After(step.Delay):
		case <-c.stopped:
			c.emit(CallEndEvent{Reason: "stopped"})
			return
		case <-c.done:
			return
		}
		c.emit(step.Event)
		if _, ok := step.Event.(CallEndEvent); ok {
			return
		}
	}

	// script exhausted; hold the call open until stop or close
	select {
	case <-c.stopped:
		c.emit(CallEndEvent{Reason: "stopped"})
	case <-c.done:
	}
}

func (c *fakeCall) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
