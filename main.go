package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fishwaldo/LineLogger/internal"
	"github.com/Fishwaldo/LineLogger/internal/config"
	"github.com/Fishwaldo/LineLogger/internal/linelogger"
	_ "github.com/Fishwaldo/LineLogger/internal/natsconnection"
	_ "github.com/Fishwaldo/LineLogger/internal/perf"
	"github.com/Fishwaldo/LineLogger/internal/serialport"
	"github.com/Fishwaldo/LineLogger/internal/taskmanager"
	"github.com/Fishwaldo/LineLogger/internal/web"
	"github.com/blang/semver/v4"
	"github.com/bombsimon/logrusr/v2"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	VersionSummary = "0.0.0"
)

func versionString() string {
	version, err := semver.ParseTolerant(VersionSummary)
	if err != nil {
		version, _ = semver.Make("0.0.0")
	}
	/* construct a version */
	versionstring := version.FinalizeVersion()
	if len(version.Pre) > 0 {
		versionstring = fmt.Sprintf("%s-%s", versionstring, version.Pre[0].VersionStr)
		if len(version.Build) > 0 {
			versionstring = fmt.Sprintf("%s-%s", versionstring, version.Build[0])
		}
	}
	return versionstring
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run returns the exit status: 0 once ctx is cancelled, 1 on any failure.
func run(ctx context.Context) int {
	fmt.Fprintf(os.Stderr, "Starting LineLogger Version %s\n", versionString())

	backend := logrus.New()
	backend.SetOutput(os.Stderr)
	logger := logrusr.New(backend)

	used, err := config.Load(os.Getenv("LINELOGGER_CONFIG"))
	if err != nil {
		logger.Error(err, "Config Failed")
		return 1
	}
	if used != "" {
		logger.Info("Loaded Config File", "file", used)
	}
	if level, err := logrus.ParseLevel(viper.GetString("log.level")); err == nil {
		backend.SetLevel(level)
	} else {
		logger.Error(err, "Invalid Log Level, keeping info", "level", viper.GetString("log.level"))
	}

	opts := linelogger.OptionsFromConfig()
	ll, err := linelogger.Open(opts, logger.WithName("serial"))
	if err != nil {
		reportOpenFailure(logger, err)
		return 1
	}
	web.RegisterStatus("serial", func() interface{} { return ll.Stats() })

	taskmanager.InitScheduler(logger.WithName("TaskManager"))
	if err := internal.StartPlugins(logger); err != nil {
		logger.Error(err, "Can't Start Plugins")
		ll.Close()
		return 1
	}
	if interval := viper.GetDuration("stats.interval"); interval > 0 {
		if err := taskmanager.Every("heartbeat", interval, ll.Heartbeat); err != nil {
			logger.Error(err, "Can't Schedule Heartbeat")
		}
	}
	taskmanager.StartScheduler()

	err = ll.Run(ctx)

	internal.StopPlugins()
	taskmanager.StopScheduler()

	if err != nil {
		logger.Error(err, "Line Logger Failed")
		return 1
	}
	return 0
}

func reportOpenFailure(logger logr.Logger, err error) {
	var connErr *serialport.ConnectionError
	if errors.As(err, &connErr) {
		logger.Error(err, "Could not open port", "port", connErr.Port, "baud", connErr.Baud, "available", serialport.AvailablePorts())
		return
	}
	logger.Error(err, "Can't Start Line Logger")
}
