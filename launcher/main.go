// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/gdamore/launcher"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitNotRunning = 3 // LSB status: program is not running
)

var (
	verbose         bool
	logToFile       bool
	dryRun          bool
	runtimeProg     = launcher.DefaultRuntime
	properties      []string
	etcDir          string
	dataDir         string
	pidFile         string
	launcherLogFile string
	serverLogFile   string
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] [run|status]\n", os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "print diagnostics")
	pflag.BoolVar(&logToFile, "log", logToFile, "append diagnostics to the launcher log")
	pflag.BoolVarP(&dryRun, "dry-run", "n", dryRun, "print the command instead of running it")
	pflag.StringVar(&runtimeProg, "runtime", runtimeProg, "runtime program")
	pflag.StringArrayVarP(&properties, "property", "D", nil, "extra property (key=value)")
	pflag.StringVar(&etcDir, "etc-dir", "", "configuration directory")
	pflag.StringVar(&dataDir, "data-dir", "", "install base directory")
	pflag.StringVar(&pidFile, "pid-file", "", "PID lock file")
	pflag.StringVar(&launcherLogFile, "launcher-log-file", "", "launcher log file")
	pflag.StringVar(&serverLogFile, "server-log-file", "", "server log file")
	pflag.Parse()

	os.Exit(run())
}

func layout() (*launcher.Layout, error) {
	var l *launcher.Layout
	if dataDir != "" {
		l = launcher.NewLayout(dataDir)
	} else {
		exe, e := os.Executable()
		if e != nil {
			return nil, fmt.Errorf("%w: %v", launcher.ErrInstallPath, e)
		}
		if l, e = launcher.ResolveLayout(exe); e != nil {
			return nil, e
		}
	}
	if etcDir != "" {
		l.SetEtcDir(etcDir)
	}
	if pidFile != "" {
		l.PidFile = launcher.RealPath(pidFile)
	}
	if launcherLogFile != "" {
		l.LauncherLog = launcher.RealPath(launcherLogFile)
	}
	if serverLogFile != "" {
		l.ServerLog = launcher.RealPath(serverLogFile)
	}
	return l, nil
}

func run() int {
	cmd := "run"
	switch pflag.NArg() {
	case 0:
	case 1:
		cmd = pflag.Arg(0)
	default:
		usage()
		return exitFailure
	}
	if cmd != "run" && cmd != "status" {
		fmt.Fprintf(os.Stderr, "launcher: unknown command %q\n", cmd)
		usage()
		return exitFailure
	}

	lay, e := layout()
	if e != nil {
		return fatal(e)
	}

	mlog := launcher.NewMultiLogger()
	if verbose {
		mlog.AddWriter(os.Stderr, "launcher: ", 0)
	}
	if logToFile {
		if e := launcher.MakeDirs(filepath.Dir(lay.LauncherLog)); e != nil {
			return fatal(e)
		}
		f, e := launcher.OpenAppend(lay.LauncherLog)
		if e != nil {
			return fatal(e)
		}
		defer f.Close()
		mlog.AddWriter(f, "", log.LstdFlags)
	}

	props := launcher.NewProperties()
	for _, p := range properties {
		k, v, e := launcher.ParseProperty(p)
		if e != nil {
			return fatal(e)
		}
		props.Set(k, v)
	}

	l, e := launcher.New(*lay, launcher.Options{
		Runtime:    runtimeProg,
		Properties: props,
		Logger:     mlog.Logger(),
	})
	if e != nil {
		return fatal(e)
	}

	if cmd == "status" {
		running, pid, e := l.Status()
		switch {
		case e != nil:
			return fatal(e)
		case !running:
			fmt.Println("Not running")
			return exitNotRunning
		case pid == 0:
			fmt.Println("Running")
		default:
			fmt.Printf("Running as %d\n", pid)
		}
		return exitOK
	}

	if dryRun {
		spec, e := l.Command()
		if e != nil {
			return fatal(e)
		}
		for _, a := range spec.Args {
			fmt.Println(a)
		}
		return exitOK
	}

	if e := l.Run(); e != nil {
		return fatal(e)
	}
	return exitOK
}

func fatal(e error) int {
	fmt.Fprintf(os.Stderr, "launcher: %v\n", e)
	return exitFailure
}
