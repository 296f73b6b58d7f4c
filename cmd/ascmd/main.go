/*
 * Omega is an advanced email service that supports Microsoft ActiveSync.
 *
 * Copyright (C) 2016, 2017 Kitae Kim <superkkt@gmail.com>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"fmt"
	"log"
	"log/syslog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/superkkt/ascmd/config"

	"github.com/pkg/profile"
	"github.com/superkkt/logger"
	"github.com/urfave/cli/v3"
	"golang.org/x/net/context"
)

const (
	programVersion = "0.1.0"
	programName    = "ascmd"
	// Time to finish the current requests after the cancellation
	shutdownTimeout = 30 * time.Second
)

var (
	profiler interface {
		Stop()
	}
)

type configKey struct{}

func main() {
	cmd := &cli.Command{
		Name:    programName,
		Usage:   "Exchange ActiveSync command protocol (MS-ASCMD) test client",
		Version: programVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: fmt.Sprintf("/usr/local/etc/%v.conf", programName),
				Usage: "absolute path of the configuration file",
			},
			&cli.StringFlag{
				Name:  "profile.mode",
				Usage: "enable profiling mode, one of [cpu, mem, block]",
			},
			&cli.BoolFlag{
				Name:  "syslog",
				Usage: "write logs to the syslog instead of the standard error",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			runCommand,
			sendCommand,
			historyCommand,
			validateCertCommand,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go signalHandler(cancel)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		fmt.Fprintf(os.Stderr, "%v: %v\n", programName, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch strings.ToUpper(cmd.String("profile.mode")) {
	case "":
	case "CPU":
		profiler = profile.Start(profile.CPUProfile, profile.NoShutdownHook)
	case "MEM":
		profiler = profile.Start(profile.MemProfile, profile.NoShutdownHook)
	case "BLOCK":
		profiler = profile.Start(profile.BlockProfile, profile.NoShutdownHook)
	default:
		return ctx, fmt.Errorf("profile.mode should be one of [cpu, mem, block]")
	}

	conf, err := config.Read(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("failed to read configurations: %v", err)
	}
	if err := initLogger(conf, cmd.Bool("syslog")); err != nil {
		return ctx, err
	}
	logger.Debug(fmt.Sprintf("%v is initialized: server=%v://%v, version=%v, encoding=%v", programName, conf.Server.Scheme, conf.Server.Host, conf.Session.ProtocolVersion, conf.Session.HeaderEncoding))

	return context.WithValue(ctx, configKey{}, conf), nil
}

func teardown(ctx context.Context, cmd *cli.Command) error {
	if profiler != nil {
		profiler.Stop()
	}

	return nil
}

func configFrom(ctx context.Context) *config.Config {
	conf, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		panic("configuration is not loaded")
	}

	return conf
}

func signalHandler(shutdown context.CancelFunc) {
	c := make(chan os.Signal, 5)
	// Following signals will be transferred to the channel c.
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGPIPE)

	for {
		switch s := <-c; s {
		case syscall.SIGTERM, syscall.SIGINT:
			logger.Info("Shutting down...")
			// The running command returns at its next step and main exits.
			shutdown()
			time.Sleep(shutdownTimeout)
			logger.Error("Timeout for the cancellation, exiting...")
			if profiler != nil {
				profiler.Stop()
			}
			os.Exit(1)
		default:
			logger.Warning(fmt.Sprintf("Received %v signal!", s))
		}
	}
}

func initLogger(conf *config.Config, useSyslog bool) error {
	var l *log.Logger
	if useSyslog {
		var err error
		l, err = syslog.NewLogger(syslog.LOG_ERR|syslog.LOG_USER, 0)
		if err != nil {
			return fmt.Errorf("failed to init syslog: %v", err)
		}
	} else {
		l = log.New(os.Stderr, "", log.LstdFlags)
	}
	logger.SetLogger(l)
	logger.SetLogLevel(conf.LogLevel)
	logger.SetPrefix(func() string {
		return fmt.Sprintf("TID=%v, ", getGoRoutineID())
	})

	return nil
}

func getGoRoutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
}
