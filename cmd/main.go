package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"ddsconv/config"
	"ddsconv/contracts"
	"ddsconv/converter"
	"ddsconv/files_manager"
	"ddsconv/logging"
	"ddsconv/utils"
)

type InputFlags = contracts.InputFlags

const (
	exitOK = iota
	exitRuntime
	exitInput
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ddsconv", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cli := contracts.DefaultInputFlags()
	fs.StringVar(&cli.Mode, "mode", cli.Mode, "Conversion direction: dds2png or png2dds")
	fs.StringVar(&cli.InputDir, "input", "", "Input directory containing the source files")
	fs.StringVar(&cli.OutputDir, "output", "", "Output directory for converted files")
	fs.BoolVar(&cli.KeepAlpha, "keep-alpha", cli.KeepAlpha, "Keep the alpha channel")
	fs.StringVar(&cli.Resize, "resize", "", "Resize every image to WxH, e.g. 256x256")
	fs.IntVar(&cli.Brightness, "brightness", 0, "Brightness adjustment (-100..100)")
	fs.IntVar(&cli.Contrast, "contrast", 0, "Contrast adjustment (-100..100)")
	fs.IntVar(&cli.Saturation, "saturation", cli.Saturation, "Saturation in percent (0..200)")
	fs.BoolVar(&cli.Sharpen, "sharpen", false, "Sharpen the image")
	fs.BoolVar(&cli.Blur, "blur", false, "Blur the image")
	fs.StringVar(&cli.PNGCompression, "png-compression", cli.PNGCompression, "PNG encoder effort: lossless or lossy")
	fs.IntVar(&cli.Workers, "workers", cli.Workers, "Number of files converted at once")
	fs.StringVar(&cli.ContactSheet, "contact-sheet", "", "Also write a PDF with one page per PNG to this path")
	fs.StringVar(&cli.LogLevel, "log-level", cli.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&cli.LogJSON, "log-json", false, "Write logs as JSON")
	configPath := fs.String("config", "", "YAML config file (default $"+config.EnvConfigPath+")")
	inspect := fs.Bool("inspect", false, "List the source files with their format details and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitInput
	}

	loaded, err := config.NewLoader().Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Input Error: %v\n", err)
		return exitInput
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	flags := config.Merge(loaded.Flags, cli, set)

	logger, err := logging.New(logging.Config{Level: flags.LogLevel, JSON: flags.LogJSON}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Input Error: %v\n", err)
		return exitInput
	}
	if loaded.Path != "" {
		logger.Debug("config loaded", "path", loaded.Path)
	}

	if *inspect {
		return inspectSources(flags, stdout, stderr)
	}

	request, err := flags.Request()
	if err != nil {
		fmt.Fprintf(stderr, "Input Error: %v\n", err)
		return exitInput
	}

	startTime := time.Now()
	summary, err := converter.New(logger).Run(ctx, request)
	if err != nil {
		if contracts.IsKind(err, contracts.KindValidation) {
			fmt.Fprintf(stderr, "Input Error: %v\n", err)
			return exitInput
		}
		fmt.Fprintf(stderr, "An error occurred: %v\n", err)
		return exitRuntime
	}

	fmt.Fprintf(stdout, "Conversion completed successfully: %d file(s) written to %s in %s\n",
		len(summary.Outputs), request.OutputDir, time.Since(startTime).Round(time.Millisecond))
	return exitOK
}

func inspectSources(flags InputFlags, stdout, stderr io.Writer) int {
	direction, err := contracts.ParseDirection(flags.Mode)
	if err == nil && flags.InputDir == "" {
		err = contracts.New(contracts.KindValidation, "inspect", "please select the input directory")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Input Error: %v\n", err)
		return exitInput
	}

	paths, err := files_manager.CollectPaths(flags.InputDir, direction.SourceExt())
	if err != nil {
		fmt.Fprintf(stderr, "An error occurred: %v\n", err)
		return exitRuntime
	}
	sort.Strings(paths)

	for _, path := range paths {
		info, err := utils.Inspect(path)
		if err != nil {
			fmt.Fprintf(stderr, "An error occurred: %v\n", err)
			return exitRuntime
		}
		fmt.Fprintln(stdout, info)
	}
	return exitOK
}
