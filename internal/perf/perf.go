package perf

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Fishwaldo/LineLogger/internal"
	tm "github.com/Fishwaldo/LineLogger/internal/taskmanager"
	"github.com/Fishwaldo/LineLogger/internal/web"
	"github.com/go-logr/logr"
	"github.com/sasha-s/go-deadlock"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("perf.enabled", true)
	viper.SetDefault("perf.poll", "30s")
	viper.SetDefault("perf.timeout", "5s")
	viper.SetDefault("perf.minfree", 100*1024*1024)
	internal.RegisterPlugin("perf", &Perf)
}

// DiskStats describes the filesystem the output file lives on.
type DiskStats struct {
	Path        string    `json:"path"`
	Total       uint64    `json:"total"`
	Free        uint64    `json:"free"`
	UsedPercent float64   `json:"used_percent"`
	Low         bool      `json:"low"`
	Updated     time.Time `json:"updated"`
}

type PerfS struct {
	Disk      DiskStats
	log       logr.Logger
	mx        deadlock.RWMutex
	dir       string
	valid     bool
	scheduled bool
}

var Perf PerfS

func (p *PerfS) Start(log logr.Logger) error {
	p.log = log
	if !viper.GetBool("perf.enabled") {
		p.log.V(1).Info("Disk Monitoring Disabled")
		return nil
	}
	dir, err := filepath.Abs(filepath.Dir(viper.GetString("output.path")))
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	p.mx.Lock()
	p.dir = dir
	p.mx.Unlock()

	p.Poll(context.Background())
	web.RegisterStatus("disk", p.Status)

	if err := tm.Every("perf", viper.GetDuration("perf.poll"), p.Poll); err != nil {
		return fmt.Errorf("can't schedule disk monitoring: %w", err)
	}
	p.scheduled = true
	p.log.Info("Added Disk Polling Schedule", "path", dir)
	return nil
}

func (p *PerfS) Stop() {
	if !p.scheduled {
		return
	}
	tm.GetScheduler().Stop("perf")
	p.scheduled = false
}

func (p *PerfS) Poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("perf.timeout"))
	defer cancel()

	p.mx.RLock()
	dir := p.dir
	p.mx.RUnlock()

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		p.log.Error(err, "Can't get Disk Usage", "path", dir)
		return
	}
	stats := DiskStats{
		Path:        dir,
		Total:       usage.Total,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
		Low:         usage.Free < viper.GetUint64("perf.minfree"),
		Updated:     time.Now(),
	}
	if stats.Low {
		p.log.Info("Low Disk Space for Output File", "path", dir, "free", usage.Free)
	}

	p.mx.Lock()
	p.Disk = stats
	p.valid = true
	p.mx.Unlock()
	internal.ProcessUpdate("disk", stats)
}

// Status is the /status provider; nil until the first successful poll.
func (p *PerfS) Status() interface{} {
	p.mx.RLock()
	defer p.mx.RUnlock()
	if !p.valid {
		return nil
	}
	return p.Disk
}
