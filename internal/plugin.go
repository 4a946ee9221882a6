package internal

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/sasha-s/go-deadlock"
)

// PluginI is an optional component started around the line loop. A plugin
// that is disabled in config returns nil from Start and does nothing.
type PluginI interface {
	Start(logr.Logger) error
	Stop()
}

// Processor receives updates published with ProcessUpdate.
type Processor func(domain string, data interface{})

var (
	mx         deadlock.RWMutex
	Plugins    = make(map[string]PluginI)
	processors = make(map[string]Processor)
	started    []string
	log        = logr.Discard()
)

func RegisterPlugin(name string, pi PluginI) {
	mx.Lock()
	defer mx.Unlock()
	if _, ok := Plugins[name]; ok {
		return
	}
	Plugins[name] = pi
}

// StartPlugins starts every registered plugin in name order. If one fails,
// the ones already started are stopped again.
func StartPlugins(logger logr.Logger) error {
	mx.Lock()
	log = logger
	names := make([]string, 0, len(Plugins))
	for name := range Plugins {
		names = append(names, name)
	}
	mx.Unlock()
	sort.Strings(names)

	for _, name := range names {
		log.Info("Starting Plugin", "plugin", name)
		if err := Plugins[name].Start(log.WithName(name)); err != nil {
			StopPlugins()
			return fmt.Errorf("plugin %s: %w", name, err)
		}
		mx.Lock()
		started = append(started, name)
		mx.Unlock()
	}
	return nil
}

// StopPlugins stops started plugins in reverse start order.
func StopPlugins() {
	mx.Lock()
	names := started
	started = nil
	mx.Unlock()
	for i := len(names) - 1; i >= 0; i-- {
		log.Info("Stopping Plugin", "plugin", names[i])
		Plugins[names[i]].Stop()
	}
}

// RegisterProcessor subscribes fn to ProcessUpdate under name. Registering
// the same name again replaces the previous processor.
func RegisterProcessor(name string, fn Processor) {
	mx.Lock()
	defer mx.Unlock()
	processors[name] = fn
}

func UnregisterProcessor(name string) {
	mx.Lock()
	defer mx.Unlock()
	delete(processors, name)
}

// ProcessUpdate hands data to every registered processor, synchronously.
func ProcessUpdate(domain string, data interface{}) {
	mx.RLock()
	fns := make([]Processor, 0, len(processors))
	for _, fn := range processors {
		fns = append(fns, fn)
	}
	mx.RUnlock()
	for _, fn := range fns {
		fn(domain, data)
	}
}
