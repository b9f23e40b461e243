// Command ebh encodes or decodes a single message with the ebh codec.
//
//	ebh -e "Hello, World!"
//	ebh -d IN7d9wXxqJgE1LKD9A
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/config"
	"github.com/RowanDark/ebh/internal/logging"
)

const productName = "ebh"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(productName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s -e <message> | -d <message>\n\n", productName)
		fs.PrintDefaults()
	}

	encodeMsg := fs.String("e", "", "encode `message`")
	decodeMsg := fs.String("d", "", "decode `message`")
	configPath := fs.String("config", "", "load configuration from this YAML file instead of ~/.ebh/config.yml and ./ebh.yml")
	maskFlag := fs.String("mask", "", "32-bit mask, e.g. 0x12345678 (overrides config)")
	alignFlag := fs.String("align", "", "mask alignment: head or tail (overrides config)")
	legacy := fs.Bool("legacy", false, "shorthand for -align tail, matching legacy ebh output")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", productName, version)
		return 0
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["e"] == set["d"] || fs.NArg() > 0 {
		fs.Usage()
		return 2
	}
	if *legacy && set["align"] {
		fmt.Fprintln(stderr, "-legacy and -align cannot be combined")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if set["mask"] {
		mask, err := cipher.ParseMask(*maskFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		cfg.Mask = mask
	}
	if set["align"] {
		align, err := cipher.ParseAlignment(*alignFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		cfg.Alignment = align
	}
	if *legacy {
		cfg.Alignment = cipher.AlignTail
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger, closer, err := logging.New(
		logging.WithWriter(stderr),
		logging.WithLevel(level),
		logging.WithFormat(cfg.Log.Format),
		logging.WithComponent(productName),
	)
	if err != nil {
		fmt.Fprintf(stderr, "configure logging: %v\n", err)
		return 1
	}
	defer closer.Close()

	codec, err := cipher.NewCodec(cipher.WithMask(cfg.Mask), cipher.WithAlignment(cfg.Alignment))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	start := time.Now()
	if set["e"] {
		out := codec.Encode(*encodeMsg)
		logger.Debug("encoded", "bytes", len(*encodeMsg), "symbols", len(out), "duration", time.Since(start))
		fmt.Fprintln(stdout, out)
		return 0
	}

	out, err := codec.Decode(*decodeMsg)
	if err != nil {
		fmt.Fprintf(stderr, "decode failed: %v\n", err)
		return 1
	}
	logger.Debug("decoded", "symbols", len(*decodeMsg), "bytes", len(out), "duration", time.Since(start))
	fmt.Fprintln(stdout, out)
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
