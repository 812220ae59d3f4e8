// Command simulate is the simulator's entry point: parse a root
// configuration file, build the component graph it describes, drive it
// against a trace, and report statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/sinuca-go/builder"
	"github.com/sarchlab/sinuca-go/components"
	"github.com/sarchlab/sinuca-go/engine"
	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/monitor"
	"github.com/sarchlab/sinuca-go/stats"
	"github.com/sarchlab/sinuca-go/trace"
	"github.com/sarchlab/sinuca-go/yamlcfg"
)

const license = `SiNUCA - Simulator of Non-Uniform Cache Architectures

Copyright (C) 2024  HiPES - Universidade Federal do Paraná

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
`

func usage() {
	fmt.Fprint(os.Stderr, license)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: simulate -c <config-file> -t <trace-stem> [flags]")
	flag.PrintDefaults()
}

func main() {
	var (
		configPath  = flag.String("c", "", "root configuration file (required)")
		traceStem   = flag.String("t", "", "trace file stem: <dir>/<prefix>_<image-name>, shared by the static, dynamic and memory trace files")
		showLicense = flag.Bool("l", false, "print license information")
		monitorAddr = flag.String("m", "", "optional run-monitor HTTP listen address, e.g. :6060")
		sinkDSN     = flag.String("s", "", "optional SQL statistics sink DSN (sqlite://path or mysql://dsn)")
	)
	flag.Usage = usage
	flag.Parse()

	if *showLicense {
		fmt.Print(license)
		atexit.Exit(0)
	}

	if *configPath == "" || *traceStem == "" {
		usage()
		atexit.Exit(1)
	}

	code := run(*configPath, *traceStem, *monitorAddr, *sinkDSN)
	atexit.Exit(code)
}

func run(configPath, traceStem, monitorAddr, sinkDSN string) int {
	root, err := yamlcfg.Parse(configPath)
	if err != nil {
		reportConfigError(err)
		return 1
	}

	eng := engine.New("engine")

	allComponents, err := builder.Build(root, eng, components.DefaultRegistry())
	if err != nil {
		reportConfigError(err)
		return 1
	}

	reader, err := openTraceReader(traceStem)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var mon *monitor.Server
	if monitorAddr != "" {
		mon = monitor.New(monitorAddr, eng)
		go func() {
			if err := mon.Serve(); err != nil {
				fmt.Fprintln(os.Stderr, "monitor:", err)
			}
		}()
		defer mon.Close()
	}

	result, err := eng.Simulate(context.Background(), reader, allComponents)
	if mon != nil {
		mon.SetFinalStatistics(result)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stats.Print(result)
		return 1
	}

	stats.Print(result)

	if sinkDSN != "" {
		if err := persist(sinkDSN, result); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	return 0
}

// reportConfigError prints build/parse diagnostics as-is: the underlying
// yamlcfg and builder error types already format themselves with a
// leading `file:line:col` location.
func reportConfigError(err error) {
	var parseErr *yamlcfg.ParseError
	var accessErr *yamlcfg.AccessError
	var buildErr *builder.Error
	switch {
	case errors.As(err, &parseErr), errors.As(err, &accessErr), errors.As(err, &buildErr):
		fmt.Fprintln(os.Stderr, err)
	default:
		fmt.Fprintln(os.Stderr, "config:", err)
	}
}

// openTraceReader resolves stem into the static/dynamic/memory file set a
// trace.Reader needs, following the static/dynamic/memory.trace suffix
// convention: stem.trace for the static dictionary, stem_tid<n>.dyn.trace
// and stem_tid<n>.mem.trace per thread. The thread count comes from the
// static file's own header.
func openTraceReader(stem string) (*trace.Reader, error) {
	staticPath := stem + ".trace"

	threadCount, err := trace.PeekThreadCount(staticPath)
	if err != nil {
		return nil, fmt.Errorf("trace: %s: %w", stem, err)
	}

	paths := trace.Paths{
		StaticDictionary: staticPath,
		Dynamic:          make([]string, threadCount),
		Memory:           make([]string, threadCount),
	}
	for tid := 0; tid < threadCount; tid++ {
		paths.Dynamic[tid] = fmt.Sprintf("%s_tid%d.dyn.trace", stem, tid)
		paths.Memory[tid] = fmt.Sprintf("%s_tid%d.mem.trace", stem, tid)
	}

	reader, err := trace.NewReader(stem, paths)
	if err != nil {
		return nil, fmt.Errorf("trace: %s: %w", stem, err)
	}

	return reader, nil
}

func persist(dsn string, result []link.Stat) error {
	sink, err := stats.OpenSink(dsn)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer sink.Close()

	if _, err := sink.Persist(result); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	return nil
}
