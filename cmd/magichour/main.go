// Package main provides the magichour command line client.
//
// Usage:
//
//	magichour generate <resource> [flags]
//	magichour upload <file>
//	magichour status <image|video|audio> <id> [-wait]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/magichour-go/internal/bootstrap"
	"github.com/maauso/magichour-go/internal/config"
	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/storage"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "generate":
		return cmdGenerate(ctx, rest, stdout, stderr)
	case "upload":
		return cmdUpload(ctx, rest, stdout, stderr)
	case "status":
		return cmdStatus(ctx, rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return errUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  magichour generate <resource> [flags]   create a job, wait for it and download its outputs
  magichour upload <file>                 upload a local file and print its storage path
  magichour status <kind> <id> [-wait]    print a project snapshot (kind: image, video, audio)

Resources: %s

Configuration is read from the environment (MAGIC_HOUR_API_KEY is required).
`, strings.Join(resourceNames(), ", "))
}

// setup loads the configuration and wires the API client.
func setup(ctx context.Context) (*bootstrap.ClientDependencies, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	deps, err := bootstrap.NewClientDependencies(ctx, cfg, cfg.NewLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("initialize dependencies: %w", err)
	}
	return deps, cfg, nil
}

func cmdGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	req := &generateRequest{}
	req.register(fs)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		fmt.Fprintf(stderr, "generate takes exactly one resource: %s\n", strings.Join(resourceNames(), ", "))
		return errUsage
	}
	req.Resource = positional[0]

	deps, cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	if req.Dir == "" {
		req.Dir = cfg.DownloadDir
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid generate request: %w", err)
	}

	out, err := runGenerate(ctx, deps, req, cfg.NewLogger())
	if out != nil {
		if encErr := writeJSON(stdout, out); encErr != nil {
			return encErr
		}
	}
	return err
}

func cmdUpload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "upload takes exactly one file")
		return errUsage
	}

	deps, _, err := setup(ctx)
	if err != nil {
		return err
	}

	ref, err := deps.Resolver.Resolve(ctx, storage.FromPath(positional[0]))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, ref)
	return err
}

func cmdStatus(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	wait := fs.Bool("wait", false, "poll until the project reaches a terminal status")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		fmt.Fprintln(stderr, "status takes a kind (image, video, audio) and a project id")
		return errUsage
	}
	kind, err := job.ParseKind(positional[0])
	if err != nil {
		return err
	}

	deps, _, err := setup(ctx)
	if err != nil {
		return err
	}
	p, err := deps.Poller(kind)
	if err != nil {
		return err
	}

	j, err := p.Poll(ctx, positional[1], *wait)
	if err != nil {
		return err
	}
	return writeJSON(stdout, j)
}

// parseInterspersed parses fs over args, allowing flags after positional
// arguments, and returns the positional arguments in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		// Everything after "--" is positional.
		if n := len(args) - len(rest); n > 0 && args[n-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
