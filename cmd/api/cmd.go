package api

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mitchellh/cli"
	"github.com/satori/uuid"
	"github.com/sony/sonyflake"
	jaegerPropagator "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/contrib/propagators/ot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"

	"github.com/sahyadri/presensi/config"
	"github.com/sahyadri/presensi/internal/svc/attendsvc"
	"github.com/sahyadri/presensi/pkg/logger"
	"github.com/sahyadri/presensi/pkg/mailclient"
	"github.com/sahyadri/presensi/pkg/ratelimit"
	"github.com/sahyadri/presensi/pkg/tracer"
	"github.com/sahyadri/presensi/transport/restapi"
)

const (
	ExitSuccess = 0
	ExitErr     = -1

	defaultRateWindow   = time.Minute
	defaultRateCap      = 60
	defaultRateSweep    = 5 * time.Minute
	defaultMessageDelay = 150 * time.Millisecond

	defaultJaegerEndpoint = "http://localhost:14268/api/traces"
)

type Cmd struct {
	flags      *flag.FlagSet
	appName    string
	appVersion string
	configFile string
}

func NewCmd(appName, appVersion string) func() (cli.Command, error) {
	return func() (cli.Command, error) {
		cmd := &Cmd{
			flags:      &flag.FlagSet{},
			appName:    appName,
			appVersion: appVersion,
		}
		err := cmd.init()
		return cmd, err
	}
}

var _ cli.Command = (*Cmd)(nil)
var _ cli.CommandFactory = NewCmd("", "")

func (c *Cmd) init() error {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.configFile, "config", "config.yml",
		"Config file to load")
	c.flags.StringVar(&c.configFile, "c", "config.yml",
		"Alias for config file to load")
	return nil
}

func (c *Cmd) Help() string {
	return `API will start the attendance notification HTTP server`
}

func (c *Cmd) Run(args []string) int {
	err := c.flags.Parse(args)
	if err != nil {
		log.Fatalf("error parsing config argument: %s", err)
		return ExitErr
	}

	// ** define system context
	ctx := logger.Inject(context.Background(), logger.Tracer{
		RemoteAddr: "system",
		AppTraceID: uuid.NewV4().String(),
	})

	// ** load config file
	configVal := &config.Config{}
	zapLog, err := config.Setup(c.configFile, configVal)
	if err != nil {
		log.Fatalf("error load config: %s", err)
		return ExitErr
	}

	// ** set global logger
	logger.SetGlobalLogger(logger.NewZap(zapLog))

	zapLog.Info("~ logger already prepared")

	// ** tracing (noop provider unless enabled)
	if configVal.Tracing.Enable {
		if err = setupTracing(configVal.Tracing); err != nil {
			logger.Error(ctx, "~ error setup tracing", logger.KV("error", err))
			return ExitErr
		}

		logger.Info(ctx, "~ trace provider prepared",
			logger.KV("endpoint", configVal.Tracing.JaegerEndpoint),
		)
	}

	// ** START DEPENDENCIES
	logger.Info(ctx, "~ starting up dependencies")

	logger.Info(ctx, "~~ preparing mail channel")
	mailer, err := c.buildMailer(ctx, configVal)
	if err != nil {
		logger.Error(ctx, "~~ error prepare mail channel", logger.KV("error", err))
		return ExitErr
	}

	defer func() {
		logger.Info(ctx, "~ closing mail channel")
		if _err := mailer.Close(); _err != nil {
			logger.Error(ctx, "~ error close mail channel", logger.KV("error", _err))
		}
	}()

	logger.Info(ctx, "~~ preparing rate governor")
	governor, err := ratelimit.NewGovernor(rateGovernorConfig(configVal))
	if err != nil {
		logger.Error(ctx, "~~ error prepare rate governor", logger.KV("error", err))
		return ExitErr
	}

	defer func() {
		if _err := governor.Close(); _err != nil {
			logger.Error(ctx, "~ error close rate governor", logger.KV("error", _err))
		}
	}()

	uuidFunc := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2021, 6, 28, 00, 00, 00, 00, time.UTC),
	})
	if uuidFunc == nil {
		logger.Error(ctx, "~~ error prepare id generator")
		return ExitErr
	}

	// ** START SERVICES
	logger.Info(ctx, "~ setting up services")
	logger.Info(ctx, "~~ attendance notification service")
	maxParallel := configVal.Notifier.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}

	messageDelay := defaultMessageDelay
	if configVal.Notifier.MessageDelayMs > 0 {
		messageDelay = time.Duration(configVal.Notifier.MessageDelayMs) * time.Millisecond
	}

	attendService, err := attendsvc.NewDispatcher(attendsvc.DispatcherConfig{
		Mailer:       mailer,
		SenderAddr:   configVal.Mailer.SenderAddr,
		ReplyTo:      configVal.Mailer.ReplyToAddr,
		MessageDelay: messageDelay,
		MaxParallel:  maxParallel,
		IDGen:        uuidFunc,
	})
	if err != nil {
		logger.Error(ctx, "~~ setting up attendance service error", logger.KV("error", err))
		return ExitErr
	}

	// ** HTTP TRANSPORT
	serverConfig := restapi.Config{
		AppServiceName: c.appName,
		AppVersion:     c.appVersion,
		AttendService:  attendService,
		RateGovernor:   governor,
	}

	logger.Info(ctx, "~ prepare http transport")
	server, err := restapi.NewHTTPTransport(serverConfig)
	if err != nil {
		logger.Error(ctx, "~ prepare http transport error", logger.KV("error", err))
		return ExitErr
	}

	httpPort := fmt.Sprintf(":%d", configVal.Transport.HTTP.Port)
	logger.Debug(ctx, fmt.Sprintf("~ http transport is up on port %s", httpPort))

	httpServer := &http.Server{
		Addr:    httpPort,
		Handler: server.Server(),
	}

	var apiErrChan = make(chan error, 1)
	go func() {
		apiErrChan <- httpServer.ListenAndServe()
	}()

	// ** listen for sigterm signal
	var signalChan = make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-signalChan:
		logger.Info(ctx, "exiting http server")
		if _err := httpServer.Shutdown(ctx); _err != nil {
			logger.Error(ctx, "error shutdown", logger.KV("error", _err))
		}

	case err := <-apiErrChan:
		if err != nil {
			logger.Info(ctx, "error HTTP API", logger.KV("error", err))
		}
	}

	return ExitSuccess
}

// setupTracing installs the jaeger-backed global trace provider and the
// ot+jaeger composite propagator. Without it the noop provider stays and
// spans cost nothing.
func setupTracing(cfg config.Tracing) error {
	endpoint := cfg.JaegerEndpoint
	if endpoint == "" {
		endpoint = defaultJaegerEndpoint
	}

	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)),
	)
	if err != nil {
		return fmt.Errorf("cannot setup jaeger exporter: %w", err)
	}

	tracer.InitTraceProvider(exp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		&ot.OT{},
		&jaegerPropagator.Jaeger{},
	))

	return nil
}

// buildMailer picks the outbound channel: real SMTP when a relay credential is
// configured, the dry-run channel when requested or when no credential exists.
func (c *Cmd) buildMailer(ctx context.Context, configVal *config.Config) (mailclient.Client, error) {
	if configVal.Mailer.DryRun {
		logger.Info(ctx, "~~ mail channel runs in dry-run mode")
		return mailclient.NewDryRun(nil), nil
	}

	if !configVal.Mailer.SMTP.Configured() {
		logger.Warn(ctx, "~~ no smtp relay configured, falling back to dry-run mode")
		return mailclient.NewDryRun(nil), nil
	}

	return mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
		EmailCredential: &mailclient.EmailCredential{
			Protocol:     "smtp",
			ServerHost:   configVal.Mailer.SMTP.ServerHost,
			ServerPort:   configVal.Mailer.SMTP.ServerPort,
			AuthIdentity: configVal.Mailer.SMTP.AuthIdentity,
			Username:     configVal.Mailer.SMTP.Username,
			Password:     configVal.Mailer.SMTP.Password,
		},
		SendTimeout: time.Duration(configVal.Mailer.SendTimeoutSec) * time.Second,
	})
}

func rateGovernorConfig(configVal *config.Config) ratelimit.GovernorConfig {
	cfg := ratelimit.GovernorConfig{
		Window:        defaultRateWindow,
		Cap:           defaultRateCap,
		SweepInterval: defaultRateSweep,
	}

	if configVal.RateLimit.WindowSeconds > 0 {
		cfg.Window = time.Duration(configVal.RateLimit.WindowSeconds) * time.Second
	}

	if configVal.RateLimit.Cap > 0 {
		cfg.Cap = configVal.RateLimit.Cap
	}

	if configVal.RateLimit.SweepSeconds > 0 {
		cfg.SweepInterval = time.Duration(configVal.RateLimit.SweepSeconds) * time.Second
	}

	return cfg
}

func (c *Cmd) Synopsis() string {
	return `API will start the attendance notification HTTP server`
}
