package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"pimine.team/miner/hashengine"
	"pimine.team/miner/log"
)

// Keep a global lazy-loaded instance of the configuration
var configuration *Configuration

// GetConfiguration returns a lazily-loaded configuration parsed from environment.
// Any error is fatal.
func GetConfiguration() (conf Configuration) {
	if configuration == nil {
		c, err := loadConfiguration()
		if err != nil {
			log.Config.Criticalf("%s", err)
			os.Exit(1)
		}
		configuration = c
	}
	return *configuration
}

// loadConfiguration checks if user requested help (-h/--help) and prints usage information
// or returns the configuration parsed from environment variables.
func loadConfiguration() (conf *Configuration, err error) {
	conf = &Configuration{}

	// print help if requested on commandline
	if len(os.Args) >= 2 && slices.ContainsFunc(os.Args[1:], func(arg string) bool {
		return arg == "-h" || arg == "--help"
	}) {
		tabs := tabwriter.NewWriter(os.Stdout, 1, 0, 4, ' ', 0)
		envconfig.Usagef(envprefix, conf, tabs, usageHelpFormat)
		tabs.Flush()
		os.Exit(1)
	}

	// load .env file into environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// ignore simple "not found" errors
		return nil, fmt.Errorf("failed to load dotenv: %w", err)
	}

	return Process()
}

// Process parses the configuration from the current environment and validates it.
func Process() (*Configuration, error) {
	conf := &Configuration{}
	if err := envconfig.Process(envprefix, conf); err != nil {
		return nil, fmt.Errorf("failed parsing config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks values that envconfig cannot check by itself.
func (c *Configuration) Validate() error {
	if _, err := hashengine.ParseAlgorithm(c.Algorithm); err != nil {
		return fmt.Errorf("invalid ALGORITHM: %w", err)
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("invalid BATCH_SIZE: must be positive")
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("invalid STATS_INTERVAL: must be positive")
	}
	if !log.ValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}
	if (c.HttpCert == "") != (c.HttpKey == "") {
		return fmt.Errorf("HTTP_CERT and HTTP_KEY must be given together")
	}
	return nil
}

// see https://github.com/kelseyhightower/envconfig/blob/v1.4.0/usage.go#L31
const usageHelpFormat = `This application is configured with the following environment variables:
KEY	DESCRIPTION	DEFAULT
{{range .}}{{usage_key .}}	{{usage_description .}}	{{usage_default .}}
{{end}}`
