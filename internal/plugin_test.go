package internal

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	name   string
	err    error
	events *[]string
}

func (f *fakePlugin) Start(logr.Logger) error {
	*f.events = append(*f.events, "start "+f.name)
	return f.err
}

func (f *fakePlugin) Stop() {
	*f.events = append(*f.events, "stop "+f.name)
}

func reset(t *testing.T) {
	t.Helper()
	mx.Lock()
	Plugins = make(map[string]PluginI)
	processors = make(map[string]Processor)
	started = nil
	mx.Unlock()
}

func TestPluginsStartInOrderAndStopInReverse(t *testing.T) {
	reset(t)
	var events []string
	RegisterPlugin("web", &fakePlugin{name: "web", events: &events})
	RegisterPlugin("nats", &fakePlugin{name: "nats", events: &events})
	RegisterPlugin("perf", &fakePlugin{name: "perf", events: &events})

	require.NoError(t, StartPlugins(logr.Discard()))
	StopPlugins()

	assert.Equal(t, []string{
		"start nats", "start perf", "start web",
		"stop web", "stop perf", "stop nats",
	}, events)
}

func TestRegisterPluginKeepsFirst(t *testing.T) {
	reset(t)
	var events []string
	first := &fakePlugin{name: "first", events: &events}
	RegisterPlugin("web", first)
	RegisterPlugin("web", &fakePlugin{name: "second", events: &events})
	assert.Same(t, first, Plugins["web"])
}

func TestStartFailureStopsStartedPlugins(t *testing.T) {
	reset(t)
	var events []string
	boom := errors.New("boom")
	RegisterPlugin("a", &fakePlugin{name: "a", events: &events})
	RegisterPlugin("b", &fakePlugin{name: "b", err: boom, events: &events})
	RegisterPlugin("c", &fakePlugin{name: "c", events: &events})

	err := StartPlugins(logr.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "plugin b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)

	// nothing left to stop
	StopPlugins()
	assert.Len(t, events, 3)
}

func TestProcessUpdateFansOut(t *testing.T) {
	reset(t)
	got := map[string]interface{}{}
	RegisterProcessor("one", func(domain string, data interface{}) { got["one:"+domain] = data })
	RegisterProcessor("two", func(domain string, data interface{}) { got["two:"+domain] = data })

	ProcessUpdate("line", "23.5,60.1")
	assert.Equal(t, map[string]interface{}{"one:line": "23.5,60.1", "two:line": "23.5,60.1"}, got)

	UnregisterProcessor("one")
	got = map[string]interface{}{}
	ProcessUpdate("line", "x")
	assert.Equal(t, map[string]interface{}{"two:line": "x"}, got)
}
