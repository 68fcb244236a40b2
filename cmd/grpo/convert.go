package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/grpo/internal/logger"
)

func convertCmd() *cli.Command {
	var outPath string

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a batch between JSON and the binary .gbf format",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path (direction is inferred from extensions)",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			if cmd.Args().Len() != 1 {
				return cli.Exit("error: expected exactly one input path", 1)
			}
			in := cmd.Args().First()

			out := outPath
			if out == "" {
				if filepath.Ext(in) == ".gbf" {
					out = in[:len(in)-len(".gbf")] + ".json"
				} else {
					out = in[:len(in)-len(filepath.Ext(in))] + ".gbf"
				}
			}

			b, err := loadBatchFile(in)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load batch: %v", err), 1)
			}

			if filepath.Ext(out) == ".gbf" {
				err = b.SaveGBF(out)
			} else {
				err = b.Save(out)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: write batch: %v", err), 1)
			}

			log.Info("converted batch", "in", in, "out", out,
				"batch_size", b.BatchSize, "seq_len", b.SeqLen, "vocab_size", b.VocabSize)
			return nil
		},
	}
}
