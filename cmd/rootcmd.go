package rootcmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.ntppool.org/common/logger"
	"go.ntppool.org/common/tracing"
)

// Run parses the command line into cmd and runs the selected command.
// Flag defaults may also come from the JSON files in configPaths and from
// environment variables prefixed with envPrefix.
func Run(cmd any, name, description, envPrefix string, configPaths ...string) {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	parser, err := kong.New(cmd,
		kong.Name(name),
		kong.Description(description),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree: true,
		}),
		kong.Configuration(kong.JSON, configPaths...),
		kong.DefaultEnvars(envPrefix),
		kong.UsageOnError(),
	)
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	var shutdown tracing.TpShutdownFunc
	if len(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) > 0 {
		shutdown, err = tracing.InitTracer(ctx, &tracing.TracerConfig{
			ServiceName: name,
		})
		parser.FatalIfErrorf(err)
	}

	err = kctx.Run()

	if shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Setup().Warn("trace provider shutdown", "err", err)
		}
	}

	parser.FatalIfErrorf(err)
}
