package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/botix"
	"github.com/comalice/botix/bdmc"
	"github.com/comalice/botix/internal/config"
	"github.com/comalice/botix/internal/extensibility"
	"github.com/comalice/botix/internal/observability"
	"github.com/comalice/botix/internal/primitives"
	"github.com/comalice/botix/internal/production"
	"github.com/comalice/botix/menta"
	"github.com/comalice/botix/realtime"
)

// app holds everything built from the flags before exporting or running.
type app struct {
	opts      options
	conf      config.Config
	log       zerolog.Logger
	blueprint *primitives.GraphConfig
	graph     *primitives.Graph
	ctrl      *bdmc.CloseLoopController
	reg       *botix.Botix
	metrics   *observability.Metrics
	publisher *production.ChannelPublisher
	events    chan production.RunEvent
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	conf := config.Default()
	if o.config != "" {
		if conf, err = config.Load(o.config); err != nil {
			return err
		}
	}
	if o.port != "" {
		conf.Serial.Port = o.port
	}
	if o.metricsAddr != "" {
		conf.Metrics.Enabled, conf.Metrics.Addr = true, o.metricsAddr
	}

	logger, err := observability.InitLogger("botixctl", conf.Logging.Level, conf.Logging.Format, stderr)
	if err != nil {
		return err
	}

	if o.listPorts {
		return listPorts(stdout)
	}

	a, err := build(o, conf, logger)
	if err != nil {
		return err
	}
	if a.opts.export != "" {
		if err := a.export(stdout); err != nil {
			return err
		}
	}
	if a.opts.save != "" {
		if err := a.save(ctx); err != nil {
			return err
		}
	}
	if a.opts.run {
		return a.execute(ctx)
	}
	return nil
}

func build(o options, conf config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{opts: o, conf: conf, log: logger}

	bp, err := primitives.LoadFile(o.graph)
	if err != nil {
		return nil, err
	}
	a.blueprint = bp

	a.ctrl, err = bdmc.New(
		bdmc.WithMotors(conf.Motors),
		bdmc.WithSerialConfig(conf.Serial.Line),
		bdmc.WithLogger(observability.Component("bdmc")),
	)
	if err != nil {
		return nil, err
	}

	a.graph, err = primitives.Build(bp, botix.NewIDAllocator(), conf.Movement, hookRegistry(a.ctrl))
	if err != nil {
		return nil, err
	}
	for i, tc := range bp.Transitions {
		if tc.CheckInterval == 0 {
			a.graph.Transitions[i].WithCheckInterval(conf.CheckInterval)
		}
	}

	opts := []botix.Option{botix.WithLogger(observability.Component("botix"))}
	if o.sensors > 0 {
		r, err := sensorResolver(a.ctrl.Context(), o.sensors)
		if err != nil {
			return nil, err
		}
		opts = append(opts, botix.WithResolver(r))
	}
	if conf.Metrics.Enabled {
		a.metrics = observability.NewMetrics()
		opts = append(opts, botix.WithObserver(a.metrics))
	}
	if o.events {
		a.events = make(chan production.RunEvent, 256)
		a.publisher = production.NewChannelPublisher(a.events,
			production.WithPublisherLogger(observability.Component("publisher")))
		opts = append(opts, botix.WithObserver(a.publisher))
	}

	a.reg = botix.New(a.ctrl, opts...).ExtendTransitions(a.graph.Transitions...)
	if err := a.reg.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q: %w", bp.ID, err)
	}
	a.log.Info().
		Str("graph", bp.ID).
		Int("states", len(a.graph.States)).
		Int("transitions", len(a.graph.Transitions)).
		Msg("graph loaded")
	return a, nil
}

// hookRegistry names the controller's device commands so blueprints can
// attach them as entry and exit hooks. Breakers read the controller context.
func hookRegistry(ctrl *bdmc.CloseLoopController) *extensibility.Registry {
	l := observability.Component("hooks")
	r := extensibility.NewRegistry(
		extensibility.WithStore(ctrl.Context()),
		extensibility.WithLogger(l),
		extensibility.WithHookLogging(),
	)
	commands := map[string][]byte{
		"reset":           bdmc.CmdReset,
		"full_stop":       bdmc.CmdFullStop,
		"direction_left":  bdmc.CmdDirectionLeft,
		"direction_right": bdmc.CmdDirectionRight,
		"echo_off":        append(append([]byte(nil), bdmc.CmdPositionEchoOff...), bdmc.CmdVelocityEchoOff...),
		"save_settings":   bdmc.CmdSaveSettings,
	}
	for name, cmd := range commands {
		r.RegisterHook(name, botix.HookFunc(func() {
			if err := ctrl.SendCmd(cmd); err != nil {
				l.Error().Err(err).Str("hook", name).Msg("device command failed")
			}
		}))
	}
	return r
}

// sensorResolver resolves branch labels from context keys sensor0 to
// sensor<n-1>, joined with commas.
func sensorResolver(store *bdmc.Context, n int) (*menta.Resolver, error) {
	m := menta.New([]menta.Sampler{
		menta.Indexed(func(i int) float64 {
			v, _ := store.Float(fmt.Sprintf("sensor%d", i))
			return v
		}),
	}, menta.WithLogger(observability.Component("menta")))

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	u, err := m.ConstructUpdater(menta.Usage(0, idx...))
	if err != nil {
		return nil, err
	}
	return menta.NewResolver(u), nil
}

func (a *app) export(stdout io.Writer) error {
	switch a.opts.export {
	case "plantuml", "dot":
		arrow, err := botix.ParseArrowStyle(a.opts.arrow)
		if err != nil {
			return err
		}
		v := &production.Visualizer{Arrow: arrow, Name: a.graph.Name}
		text := v.ExportPlantUML(a.reg)
		if a.opts.export == "dot" {
			text = v.ExportDOT(a.reg)
		}
		if a.opts.out == "" {
			_, err := io.WriteString(stdout, text)
			return err
		}
		return renameio.WriteFile(a.opts.out, []byte(text), 0o644)

	case "yaml", "json":
		snap := a.snapshot()
		format := production.Format(a.opts.export)
		if a.opts.out == "" {
			return production.Encode(stdout, snap, format)
		}
		return production.WriteFile(a.opts.out, snap, format, a.log)
	}
	return fmt.Errorf("unknown export format %q", a.opts.export)
}

func (a *app) snapshot() production.GraphSnapshot {
	snap := production.Snapshot(a.graph.ID, a.reg, a.graph.Name)
	snap.Version = primitives.ComputeVersion(a.blueprint)
	return snap
}

func (a *app) save(ctx context.Context) error {
	p, err := production.NewFilePersister(a.opts.save, production.FormatYAML)
	if err != nil {
		return err
	}
	snap := a.snapshot()
	if err := p.Save(ctx, snap); err != nil {
		return err
	}
	a.log.Info().Str("path", p.Path(snap.ID)).Str("version", snap.Version).Msg("snapshot saved")
	return nil
}

func (a *app) execute(ctx context.Context) error {
	if err := a.openPort(); err != nil {
		return err
	}
	defer func() {
		if a.ctrl.Attached() {
			if err := a.ctrl.Close(); err != nil {
				a.log.Warn().Err(err).Msg("closing controller port")
			}
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.metrics != nil {
		a.serveMetrics(gctx, g)
	}

	runID := uuid.NewString()
	if a.publisher != nil {
		a.publisher.SetRunID(runID)
		done := make(chan struct{})
		go func() {
			defer close(done)
			a.logEvents()
		}()
		defer func() {
			_ = a.publisher.Close()
			<-done
		}()
	}

	runner := realtime.NewRunner(a.reg,
		realtime.WithLogger(observability.Component("runner")),
		realtime.WithRunIDs(func() string { return runID }),
		realtime.OnFinish(func(res realtime.Result) {
			if a.metrics != nil {
				a.metrics.RunFinished(res.Report, res.Err)
			}
		}),
	)
	if _, err := runner.Start(gctx); err != nil {
		return err
	}
	res, runErr := runner.Wait()

	if res.Report.Stopped {
		if err := a.ctrl.SendCmd(bdmc.CmdFullStop); err != nil {
			a.log.Error().Err(err).Msg("full stop after interrupted run failed")
		}
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn().Err(err).Msg("metrics server")
	}
	return runErr
}

func (a *app) openPort() error {
	port := a.conf.Serial.Port
	if port == "" && (a.conf.Serial.Vendor != 0 || a.conf.Serial.Product != 0) {
		ports, err := bdmc.FindUSBTTY(a.conf.Serial.Vendor, a.conf.Serial.Product)
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return fmt.Errorf("no USB serial adapter %04x:%04x found", a.conf.Serial.Vendor, a.conf.Serial.Product)
		}
		port = ports[0].Path
	}
	if port == "" {
		a.log.Warn().Msg("no serial port configured, speed commands are only logged")
		return nil
	}
	return a.ctrl.Open(port)
}

func (a *app) serveMetrics(ctx context.Context, g *errgroup.Group) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.conf.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *app) logEvents() {
	l := observability.Component("events")
	for ev := range a.events {
		e := l.Info().Str("run_id", ev.RunID).Str("kind", string(ev.Kind)).Time("at", ev.At)
		switch ev.Kind {
		case production.StateEntered:
			e = e.Uint64("state", uint64(ev.State)).Ints("speeds", ev.Speeds[:])
		case production.TransitionFinished:
			e = e.Uint64("transition", uint64(ev.Transition)).Dur("elapsed", ev.Elapsed).Bool("tripped", ev.Tripped)
		}
		e.Msg("run event")
	}
}

func listPorts(w io.Writer) error {
	ports, err := bdmc.FindSerialPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		if p.USB {
			fmt.Fprintf(w, "%s\t%04x:%04x\n", p.Path, p.VendorID, p.ProductID)
			continue
		}
		fmt.Fprintln(w, p.Path)
	}
	return nil
}
