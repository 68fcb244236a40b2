// Command lossdiff compares the f32 log-probability path against the
// reduced-precision path on the same batch, reporting per-row and summary
// divergence. Useful when deciding whether bf16 scores are accurate enough
// for a training run.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/samcharles93/grpo/internal/batch"
	"github.com/samcharles93/grpo/internal/loss"
	"github.com/samcharles93/grpo/internal/tensor"
)

type diffStats struct {
	MaxAbs       float64
	MeanAbs      float64
	RMSE         float64
	VectorLength int
}

func main() {
	var (
		batchPath string
		dtype     string
		perRow    bool

		synthetic bool
		batchSize int
		seqLen    int
		vocabSize int
		seed      int64
	)

	flag.StringVar(&batchPath, "batch", "", "path to a batch with f32 scores (.json or .gbf)")
	flag.StringVar(&dtype, "dtype", "bf16", "reduced dtype to compare against (bf16, f16)")
	flag.BoolVar(&perRow, "per-row", false, "print per-row divergence")
	flag.BoolVar(&synthetic, "synthetic", false, "use a synthetic toy-model batch")
	flag.IntVar(&batchSize, "batch-size", 4, "synthetic batch size")
	flag.IntVar(&seqLen, "seq-len", 32, "synthetic sequence length")
	flag.IntVar(&vocabSize, "vocab-size", 128, "synthetic vocabulary size")
	flag.Int64Var(&seed, "seed", 0, "synthetic batch seed")
	flag.Parse()

	var reduced tensor.DType
	switch dtype {
	case "bf16":
		reduced = tensor.DTypeBF16
	case "f16":
		reduced = tensor.DTypeF16
	default:
		fmt.Fprintf(os.Stderr, "unknown dtype %q (want bf16 or f16)\n", dtype)
		os.Exit(2)
	}

	var (
		b   *batch.Batch
		err error
	)
	switch {
	case synthetic:
		b, err = batch.Synthetic(batchSize, seqLen, vocabSize, seed, tensor.DTypeF32)
	case batchPath != "":
		if filepath.Ext(batchPath) == ".gbf" {
			b, err = batch.LoadGBF(batchPath)
		} else {
			b, err = batch.Load(batchPath)
		}
	default:
		fmt.Fprintln(os.Stderr, "pass -batch or -synthetic")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "load batch:", err)
		os.Exit(1)
	}
	if b.Scores == nil {
		fmt.Fprintln(os.Stderr, "batch carries no f32 scores; nothing to compare against")
		os.Exit(1)
	}

	exact, err := b.ScoresTensor()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lossy, err := exact.EncodeRaw(reduced)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ids := b.IDs()
	mask := b.Mask()
	exactLogps := loss.SelectiveLogProbs(exact, ids)
	lossyLogps := loss.SelectiveLogProbs(lossy, ids)

	fmt.Printf("batch=(%d, %d, %d) dtype=%s valid_tokens=%d\n",
		b.BatchSize, b.SeqLen, b.VocabSize, dtype, mask.CountNonZero())

	acc := diffAccumulator{worstRow: -1}
	for bi := 0; bi < b.BatchSize; bi++ {
		stats := diffRow(exactLogps.Row(bi), lossyLogps.Row(bi), mask.Row(bi))
		acc.add(bi, stats)
		if perRow {
			fmt.Printf("row[%d] n=%d max_abs=%.6g mean_abs=%.6g rmse=%.6g\n",
				bi, stats.VectorLength, stats.MaxAbs, stats.MeanAbs, stats.RMSE)
		}
	}

	if acc.count > 0 {
		fmt.Printf("summary rows=%d max_abs=%.6g mean_abs=%.6g rmse=%.6g worst_row=%d\n",
			acc.count,
			acc.maxAbs,
			acc.meanAbs/float64(acc.count),
			acc.rmse/float64(acc.count),
			acc.worstRow,
		)
	}
}

type diffAccumulator struct {
	count    int
	maxAbs   float64
	meanAbs  float64
	rmse     float64
	worstRow int
}

func (a *diffAccumulator) add(row int, s diffStats) {
	a.count++
	if s.MaxAbs > a.maxAbs || a.worstRow < 0 {
		a.maxAbs = s.MaxAbs
		a.worstRow = row
	}
	a.meanAbs += s.MeanAbs
	a.rmse += s.RMSE
}

// diffRow reduces the masked divergence between two log-probability rows.
func diffRow(a, b []float32, mask []int32) diffStats {
	var (
		sumAbs float64
		sumSq  float64
		maxAbs float64
		n      int
	)
	for i := range a {
		if mask[i] == 0 {
			continue
		}
		diff := math.Abs(float64(a[i]) - float64(b[i]))
		sumAbs += diff
		sumSq += diff * diff
		if diff > maxAbs {
			maxAbs = diff
		}
		n++
	}
	if n == 0 {
		return diffStats{}
	}
	return diffStats{
		MaxAbs:       maxAbs,
		MeanAbs:      sumAbs / float64(n),
		RMSE:         math.Sqrt(sumSq / float64(n)),
		VectorLength: n,
	}
}
