//go:build windows

// Command overlay is the module injected into the target. Build it with
// -buildmode=c-shared; package initialization starts the overlay when the
// loader maps the DLL.
package main

import "C"

import (
	"context"
	"path/filepath"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/config"
	"github.com/r0lh/poverlay/hook"
	"github.com/r0lh/poverlay/logging"
	"github.com/r0lh/poverlay/overlay"
	"github.com/r0lh/poverlay/present"
	"github.com/r0lh/poverlay/winsys"
)

// module stays referenced for the life of the host process.
var module *overlay.Module

func init() {
	go start()
}

func moduleDir() string {
	path, err := winsys.ModuleFileName(reflect.ValueOf(moduleDir).Pointer())
	if err != nil {
		return ""
	}
	return filepath.Dir(path)
}

func start() {
	cfg, cfgErr := config.Load(moduleDir())

	log, _, logErr := logging.NewModule(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("overlay startup failed")
		}
	}()
	if logErr != nil {
		log.WithError(logErr).Warn("log file unavailable, logging disabled")
	}
	if cfgErr != nil {
		log.WithError(cfgErr).Warn("bad configuration, using defaults")
		cfg = config.Default()
	}

	m, err := overlay.New(cfg, hook.NewEngine(hook.DefaultPatcher()), present.Backends, log)
	if err != nil {
		log.WithError(err).Error("overlay not started")
		return
	}
	module = m

	log.WithFields(logrus.Fields{"backend": cfg.Backend, "addr": cfg.Addr}).Info("overlay starting")
	if err := m.Start(context.Background()); err != nil {
		log.WithError(err).Error("command channel unavailable")
	}
}

func main() {}
