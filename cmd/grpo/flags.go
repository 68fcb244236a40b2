package main

import "github.com/urfave/cli/v3"

var (
	batchPath  string
	scoreDType string

	synthetic bool
	batchSize int64
	seqLen    int64
	vocabSize int64
	seed      int64

	variantType    string
	epsilonLow     float64
	epsilonHigh    float64
	clipRatio      float64
	entropyPercent float64
	temperature    float64

	logLevel  string
	logFormat string
	debug     bool
)

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "batch",
			Aliases:     []string{"b"},
			Usage:       "path to a batch file (.json or .gbf)",
			Destination: &batchPath,
		},
		&cli.BoolFlag{
			Name:        "synthetic",
			Usage:       "evaluate a synthetic toy-model batch instead of a file",
			Destination: &synthetic,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Usage:       "synthetic batch size",
			Value:       4,
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "seq-len",
			Usage:       "synthetic sequence length",
			Value:       32,
			Destination: &seqLen,
		},
		&cli.Int64Flag{
			Name:        "vocab-size",
			Usage:       "synthetic vocabulary size",
			Value:       128,
			Destination: &vocabSize,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "synthetic batch seed",
			Value:       0,
			Destination: &seed,
		},
		&cli.StringFlag{
			Name:        "dtype",
			Usage:       "synthetic score dtype (f32, bf16, f16)",
			Value:       "f32",
			Destination: &scoreDType,
		},
	}
}

func variantFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "variant",
			Usage:       "loss variant (clip, ratio)",
			Value:       "clip",
			Destination: &variantType,
		},
		&cli.Float64Flag{
			Name:        "epsilon-low",
			Usage:       "lower trust-region epsilon (clip variant)",
			Value:       0.2,
			Destination: &epsilonLow,
		},
		&cli.Float64Flag{
			Name:        "epsilon-high",
			Usage:       "upper trust-region epsilon (clip variant)",
			Value:       0.2,
			Destination: &epsilonHigh,
		},
		&cli.Float64Flag{
			Name:        "clip-ratio",
			Usage:       "hard ceiling on the importance ratio",
			Value:       4,
			Destination: &clipRatio,
		},
		&cli.Float64Flag{
			Name:        "entropy-percent",
			Usage:       "fraction of highest-entropy tokens kept in the reduction",
			Value:       1,
			Destination: &entropyPercent,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature the scores were produced at",
			Value:       1,
			Destination: &temperature,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
