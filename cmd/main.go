package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/nevisdale/opclass/internal/rewrite"
	"github.com/nevisdale/opclass/internal/scan"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

type config struct {
	in         string
	keepPrefix bool
	listRules  bool
	verbose    bool
	trace      bool
	profile    string
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("opclass", flag.ContinueOnError)
	fs.StringVar(&cfg.in, "in", "src/cpu.ts", "emulator source with the handler methods")
	fs.BoolVar(&cfg.keepPrefix, "keep-prefix", false, "keep the op marker in class names (opAdc -> OpAdc)")
	fs.BoolVar(&cfg.listRules, "rules", false, "print the substitution table in application order and exit")
	fs.BoolVar(&cfg.verbose, "v", false, "log handlers on stderr")
	fs.BoolVar(&cfg.trace, "vv", false, "like -v, and dump the substitution table")
	fs.StringVar(&cfg.profile, "profile", "", "profile the run: cpu or mem")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	switch cfg.profile {
	case "", "cpu", "mem":
	default:
		return config{}, fmt.Errorf("unknown profile mode %q", cfg.profile)
	}
	return cfg, nil
}

func setupLogging(cfg config) {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	switch {
	case cfg.trace:
		logrus.SetLevel(logrus.TraceLevel)
	case cfg.verbose:
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func run(cfg config, stdout io.Writer) error {
	rw, err := rewrite.New(stdout)
	if err != nil {
		return err
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Trace(spew.Sdump(rw.Rules()))
	}

	if cfg.listRules {
		for _, rule := range rw.Rules() {
			if _, err := fmt.Fprintln(stdout, rule); err != nil {
				return err
			}
		}
		return nil
	}

	return scan.ScanFile(cfg.in, rw,
		scan.WithKeepPrefix(cfg.keepPrefix),
		scan.WithLogger(logrus.WithFields(logrus.Fields{
			"component": "scan",
			"input":     cfg.in,
		})),
	)
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		logrus.Fatalf("couldn't parse flags: %s", err)
	}

	setupLogging(cfg)

	switch cfg.profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	if err := run(cfg, os.Stdout); err != nil {
		logrus.Fatalf("%s", err)
	}
}
