// Package runner wires configuration, transport and reporters into one zome
// call attempt or one app info query.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/zomecall/internal/config"
	"github.com/morezero/zomecall/pkg/appclient"
	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/events"
	"github.com/morezero/zomecall/pkg/transport"
	"github.com/morezero/zomecall/pkg/wire"
)

const logPrefix = "runner:runner"

// SetupLogging installs the default text logger at the given level.
func SetupLogging(level string, w io.Writer) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

// Runner performs attempts described by a Config.
type Runner struct {
	cfg      *config.Config
	connect  appclient.ConnectFunc
	reporter events.Reporter
	metrics  *prometheus.Registry
	outcomes *comms.Conn
}

// New builds a Runner. Outcome publishing and the metrics textfile are only
// set up when configured.
func New(cfg *config.Config) (*Runner, error) {
	r := &Runner{
		cfg: cfg,
		connect: appclient.Dialer(cfg.ConductorURL, transport.Options{
			Name:             cfg.ServiceName,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subject:          cfg.ConductorSubject,
		}),
	}
	reporters := events.MultiReporter{&events.LogReporter{}}

	if cfg.OutcomeNATSURL != "" {
		nc, err := comms.Connect(cfg.OutcomeNATSURL, comms.Name(cfg.ServiceName+"-outcomes"))
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to outcome COMMS at %s: %w", logPrefix, cfg.OutcomeNATSURL, err)
		}
		r.outcomes = nc
		reporters = append(reporters, events.NewCommsReporter(nc, &events.CommsReporterOpts{GlobalSubject: cfg.OutcomeSubject}))
		slog.Info(fmt.Sprintf("%s - Publishing outcomes to %s", logPrefix, cfg.OutcomeSubject))
	}

	if cfg.MetricsFile != "" {
		r.metrics = prometheus.NewRegistry()
		m, err := events.NewMetricsReporter(r.metrics)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("%s - failed to register metrics: %w", logPrefix, err)
		}
		reporters = append(reporters, m)
	}

	r.reporter = reporters
	return r, nil
}

// WithConnect replaces how attempts connect to the conductor.
func (r *Runner) WithConnect(connect appclient.ConnectFunc) *Runner {
	r.connect = connect
	return r
}

// Target returns the call target of the configuration.
func (r *Runner) Target() (appclient.Target, error) {
	secret, err := r.cfg.CapSecretBytes()
	if err != nil {
		return appclient.Target{}, err
	}
	return appclient.Target{
		AppID:     r.cfg.InstalledAppID,
		ZomeName:  r.cfg.ZomeName,
		FnName:    r.cfg.FnName,
		CapSecret: secret,
	}, nil
}

// Call performs one attempt with the configured JSON payload and returns the
// decoded result.
func (r *Runner) Call(ctx context.Context) (interface{}, error) {
	target, err := r.Target()
	if err != nil {
		return nil, err
	}
	in, err := wire.ParseJSONPayload(r.cfg.ZomePayload)
	if err != nil {
		return nil, fmt.Errorf("%s - ZOME_PAYLOAD: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Calling %s/%s on app %s at %s", logPrefix, target.ZomeName, target.FnName, target.AppID, r.cfg.ConductorURL))
	out, err := appclient.Invoke[any, any](ctx, r.connect, target, in, r.reporter)
	r.writeMetrics()
	return out, err
}

// Info fetches the descriptor of the configured app.
func (r *Runner) Info(ctx context.Context) (*conductor.InstalledAppInfo, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.Warn(fmt.Sprintf("%s - teardown failed: %v", logPrefix, cerr))
		}
	}()

	info, err := client.AppInfo(ctx, r.cfg.InstalledAppID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%s - app %q is not installed", logPrefix, r.cfg.InstalledAppID)
	}
	return info, nil
}

// Close releases the outcome connection, if any.
func (r *Runner) Close() {
	if r.outcomes != nil {
		if err := r.outcomes.Drain(); err != nil {
			r.outcomes.Close()
		}
		r.outcomes = nil
	}
}

func (r *Runner) writeMetrics() {
	if r.metrics == nil {
		return
	}
	if err := prometheus.WriteToTextfile(r.cfg.MetricsFile, r.metrics); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to write metrics to %s: %v", logPrefix, r.cfg.MetricsFile, err))
		return
	}
	slog.Debug(fmt.Sprintf("%s - Wrote metrics to %s", logPrefix, r.cfg.MetricsFile))
}
