package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/confessions/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-p string   HTTP bind address (e.g. ":8080")
//	-m string   storage backend: postgres | memory
//	-d string   PostgreSQL DSN
//	-s string   identity token HMAC secret
//	-k string   identity derivation key
//	-t int      identity token validity, hours
//	-n int      submission window, minutes
//	-l string   log level
//
// Only these flags are looked at; everything else on the command line is
// left for other components (see flagx.FilterArgs).
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-p", "-m", "-d", "-s", "-k", "-t", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "p", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend (postgres|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "identity token secret")
	fs.StringVar(&config.IdentityKey, "k", config.IdentityKey, "identity derivation key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	tokenValidity := fs.Int("t", int(config.IdentityTokenValidityDuration.Hours()), "identity token validity (in hours)")
	window := fs.Int("n", int(config.SubmissionWindow.Minutes()), "submission window (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations are only touched when given, so sub-unit values from JSON survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.IdentityTokenValidityDuration = time.Duration(*tokenValidity) * time.Hour
		case "n":
			config.SubmissionWindow = time.Duration(*window) * time.Minute
		}
	})
}
