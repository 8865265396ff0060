package main

import (
	"context"
	"fmt"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/docopt/docopt-go"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	listenAddress FlagType = iota
	servicePort

	configPath
	opaPath

	logFormat
)

const usageFmt string = `Parse relationship relay.

Usage:
    parse-relay [--listen=<address>] [--port=<port>] [--config=<path>] [--policies=<path>] [--log-format=<format>]

Options:
    -h --help                Show this screen.
    --version                Show version.
    --listen=<address>       Address to listen on [default: %s].
    -p --port=<port>         Listen port [default: %s].
    --config=<path>          Tenant and model configuration [default: %s].
    --policies=<path>        Authorization policies [default: %s].
    --log-format=<format>    Log format, json or text [default: %s].`

func defaultFlags(ctx context.Context) FlagMap {
	return FlagMap{
		listenAddress: env.GetVariableOrDefault(ctx, "LISTEN_ADDRESS", ""),
		servicePort:   env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080"),
		configPath:    env.GetVariableOrDefault(ctx, "RELAY_CONFIG_FILE", "/opt/diwise/config/relay.yaml"),
		opaPath:       env.GetVariableOrDefault(ctx, "POLICY_FILE", "/opt/diwise/config/authz.rego"),
		logFormat:     env.GetVariableOrDefault(ctx, "LOG_FORMAT", "json"),
	}
}

// parseFlags overrides the defaults, usually taken from the environment, with any
// command line arguments
func parseFlags(args []string, version string, defaults FlagMap) (FlagMap, error) {
	usage := fmt.Sprintf(usageFmt,
		defaults[listenAddress],
		defaults[servicePort],
		defaults[configPath],
		defaults[opaPath],
		defaults[logFormat],
	)

	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpAndExit}
	opts, err := parser.ParseArgs(usage, args, version)
	if err != nil {
		return nil, err
	}

	flags := FlagMap{}
	for flag, name := range map[FlagType]string{
		listenAddress: "--listen",
		servicePort:   "--port",
		configPath:    "--config",
		opaPath:       "--policies",
		logFormat:     "--log-format",
	} {
		value, err := opts.String(name)
		if err != nil || value == "" {
			value = defaults[flag]
		}
		flags[flag] = value
	}

	return flags, nil
}
