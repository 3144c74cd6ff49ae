// Command lzblock compresses files with the fixed-block adaptive LZ
// engine, one independent 32KB block at a time. The output has no
// container format and no decoder; the tool exists to exercise the engine
// and report its performance counters.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lzblock/lzblock"
)

var (
	flagOutput       string
	flagVerbose      bool
	flagFreshModel   bool
	flagFetchLatency int
)

func main() {
	root := &cobra.Command{
		Use:           "lzblock",
		Short:         "fixed-block adaptive LZ compressor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	compress := &cobra.Command{
		Use:   "compress <file>",
		Short: "compress a file block by block",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompress,
	}
	compress.Flags().StringVarP(&flagOutput, "output", "o", "", "output path (default <file>.lzb)")
	compress.Flags().BoolVar(&flagFreshModel, "fresh-model", false,
		"reset the probability model at every block boundary")
	compress.Flags().IntVar(&flagFetchLatency, "fetch-latency", 4,
		"dictionary cache miss latency in cycles")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	version := &cobra.Command{
		Use:   "version",
		Short: "print the engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(lzblock.Version)
		},
	}

	root.AddCommand(compress, version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func runCompress(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	input, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	padded := lzblock.PadBlock(input)

	job := lzblock.NewJob(lzblock.Config{
		FetchLatency: flagFetchLatency,
		FreshModel:   flagFreshModel,
		Logger:       logger,
	})

	registry := prometheus.NewRegistry()
	if err := registry.Register(lzblock.NewCountersCollector(job.Counters)); err != nil {
		return err
	}

	out := flagOutput
	if out == "" {
		out = args[0] + ".lzb"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	var totalIn, totalOut uint64
	for block := 0; block*lzblock.BlockSize < len(padded); block++ {
		start := block * lzblock.BlockSize
		res, err := job.Run(padded[start : start+lzblock.BlockSize])
		if err != nil {
			return fmt.Errorf("block %d: %w", block, err)
		}
		if _, err := f.Write(res.Compressed); err != nil {
			return err
		}
		totalIn += res.Counters.BytesProcessed
		totalOut += res.Counters.CompressedBytes
		logger.Info("block done",
			zap.Int("block", block),
			zap.Uint32("inputCRC", res.InputCRC),
			zap.Uint32("outputCRC", res.OutputCRC),
			zap.String("counters", res.Counters.String()))
	}

	fmt.Printf("%s: %d bytes in, %d bytes out (%.3f)\n",
		args[0], totalIn, totalOut, float64(totalOut)/float64(totalIn))
	return nil
}
