package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/grpo/internal/batch"
	"github.com/samcharles93/grpo/internal/logger"
	"github.com/samcharles93/grpo/internal/loss"
	"github.com/samcharles93/grpo/internal/tensor"
)

func evalCmd() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "Evaluate the GRPO loss for one batch",
		Flags: append(batchFlags(), variantFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEvalConfig(cmd, LoadConfig())

			b, err := resolveBatch()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load batch: %v", err), 1)
			}
			if !b.HasScores() {
				return cli.Exit("error: batch carries no scores payload", 1)
			}

			cfg, err := variantSpecFromFlags().Build()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			shifted, err := b.ScoresTensor()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			mask := b.Mask()

			log.Debug("evaluating batch",
				"batch_size", b.BatchSize, "seq_len", b.SeqLen, "vocab_size", b.VocabSize,
				"dtype", b.ScoreDType, "variant", variantType)

			res, err := loss.GRPO(shifted, b.IDs(), b.AdvantagesGrid(), b.RefLogprobsGrid(), mask, temperature, cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			entropy, err := loss.ComputeEntropy(shifted, mask, temperature)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			valid := mask.CountNonZero()
			fmt.Printf("variant:        %s\n", variantType)
			fmt.Printf("valid tokens:   %d\n", valid)
			fmt.Printf("loss:           %.6f\n", res.Loss)
			fmt.Printf("ratio:          %.6f\n", res.Ratio)
			fmt.Printf("clipped tokens: %.0f\n", res.ClippedTokens)
			fmt.Printf("entropy:        %.6f\n", entropy)
			if valid > 0 {
				fmt.Printf("loss/token:     %.6f\n", res.Loss/float64(valid))
				fmt.Printf("entropy/token:  %.6f\n", entropy/float64(valid))
			}
			return nil
		},
	}
}

func variantSpecFromFlags() loss.VariantSpec {
	return loss.VariantSpec{
		Type:                  variantType,
		EpsilonLow:            epsilonLow,
		EpsilonHigh:           epsilonHigh,
		ClipRatio:             clipRatio,
		HighestEntropyPercent: entropyPercent,
	}
}

func resolveBatch() (*batch.Batch, error) {
	if synthetic {
		dtype, err := parseDType(scoreDType)
		if err != nil {
			return nil, err
		}
		return batch.Synthetic(int(batchSize), int(seqLen), int(vocabSize), seed, dtype)
	}
	if strings.TrimSpace(batchPath) == "" {
		return nil, fmt.Errorf("no batch given: pass --batch or --synthetic")
	}
	return loadBatchFile(batchPath)
}

func loadBatchFile(path string) (*batch.Batch, error) {
	if filepath.Ext(path) == ".gbf" {
		return batch.LoadGBF(path)
	}
	return batch.Load(path)
}

func parseDType(s string) (tensor.DType, error) {
	switch s {
	case "", "f32":
		return tensor.DTypeF32, nil
	case "bf16":
		return tensor.DTypeBF16, nil
	case "f16":
		return tensor.DTypeF16, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q (want f32, bf16 or f16)", s)
	}
}
