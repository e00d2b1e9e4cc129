// Command botixctl loads a movement graph blueprint, exports it, or runs it
// on the closed-loop motor controller.
//
//	botixctl -graph square.yaml -export plantuml
//	botixctl -config botix.toml -graph square.yaml -run -port /dev/ttyUSB0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "botixctl: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	config      string
	graph       string
	export      string
	out         string
	save        string
	arrow       string
	port        string
	run         bool
	metricsAddr string
	sensors     int
	events      bool
	listPorts   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("botixctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: botixctl [flags]")
		fmt.Fprintln(stderr, "Load a graph blueprint, then export it or run it on the motor controller.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	fs.StringVar(&o.config, "config", "", "runtime config file (.yaml, .yml or .toml)")
	fs.StringVar(&o.graph, "graph", "", "graph blueprint file (.yaml, .toml or .json)")
	fs.StringVar(&o.export, "export", "", "export format: plantuml, dot, yaml or json")
	fs.StringVar(&o.out, "out", "", "write the export to this file instead of stdout")
	fs.StringVar(&o.save, "save", "", "also store a YAML snapshot of the graph in this directory")
	fs.StringVar(&o.arrow, "arrow", "", "PlantUML arrow direction: down, left, right or up")
	fs.StringVar(&o.port, "port", "", "serial device of the motor controller")
	fs.BoolVar(&o.run, "run", false, "run the graph on the controller")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.IntVar(&o.sensors, "sensors", 0, "resolve branches from this many context keys sensor0..sensorN-1")
	fs.BoolVar(&o.events, "events", false, "log every run step")
	fs.BoolVar(&o.listPorts, "list-ports", false, "list serial ports and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return o, fmt.Errorf("unexpected arguments %v", fs.Args())
	}
	if o.listPorts {
		return o, nil
	}
	if o.graph == "" {
		fs.Usage()
		return o, errors.New("-graph is required")
	}
	if o.export == "" && !o.run {
		o.export = "plantuml"
	}
	if o.sensors < 0 {
		return o, fmt.Errorf("-sensors %d must not be negative", o.sensors)
	}
	return o, nil
}
