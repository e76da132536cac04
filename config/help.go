package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
ride-dispatch: ride dispatch, pricing and wallet service

Usage:
  dispatch [-config-path config.yaml] [-env-path .env]
  dispatch -help

Every setting can be given as an environment variable (see config.yaml).
Without DATABASE_ENABLED / REDIS_ENABLED / RABBITMQ_ENABLED / KAFKA_ENABLED the
service runs on in-memory storage, logs notifications and skips the location stream.

Flags:
`

func PrintHelp() {
	fmt.Printf("%s", HelpMessage)
	flag.PrintDefaults()
}
