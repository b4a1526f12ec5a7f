// pattern: Imperative Shell
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"sweep/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.Options{Stdout: os.Stdout, Stderr: os.Stderr}

	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	// Stop parsing flags after the first non-flag arg (the command),
	// so that flags after a command are handled by the command.
	fs.SetInterspersed(false)
	fs.SetOutput(os.Stderr)
	cli.RegisterFlags(fs, &opts)

	fs.Usage = func() {
		cli.BuildApp(ctx, version, opts).PrintHelp(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	opts.MarkChanged(fs)

	return cli.BuildApp(ctx, version, opts).Execute(fs.Args())
}
