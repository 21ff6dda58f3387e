// Package main contains the chilid command line entry point. It uses
// cobra for subcommand dispatch, mirroring the rest of this module's
// domain-stack choices.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chilidb/chili/broker"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/internal/clog"
	"github.com/chilidb/chili/internal/config"
)

type serveFlags struct {
	configPath string
}

type replayFlags struct {
	dataFile   string
	start      int
	end        int
	startTime  int64
	tableNames []string
	v6         bool
}

type validateSeqFlags struct {
	deserializeEach bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "chilid",
		Short: "Columnar analytical engine server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(validateSeqCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the config, create the engine and validate the sequence log (no listener, no job loop)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "chilid.toml", "path to TOML configuration")
	return cmd
}

func runServe(flags *serveFlags) error {
	log := clog.NewLogger("chilid")
	log.LogMode(true)

	data, err := os.ReadFile(flags.configPath)
	var cfg config.Config
	if err != nil {
		log.Warn("config file %s unreadable (%v), using defaults", flags.configPath, err)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.Load(data)
		if err != nil {
			return err
		}
	}

	eng := engine.New()
	log.Critical("chilid configured for port %d, sequence log %s", cfg.ListenPort, cfg.SequenceLogDir)

	seqPath := cfg.SequenceLogDir + "/seq.log"
	if n, err := broker.ValidateSeq(seqPath, true); err != nil {
		log.Error("validate_seq failed: %v", err)
	} else {
		log.Critical("validate_seq recovered %d records from %s", n, seqPath)
	}

	// The evaluator, parser, and network accept loop (§6.4) are external
	// collaborators not implemented by this module; serve wires state
	// and leaves the request-processing loop to be supplied by the
	// embedding evaluator.
	_ = eng
	return nil
}

func replayCmd() *cobra.Command {
	flags := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay <path>",
		Short: "Replay a sequence or q message log",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			flags.dataFile = args[0]
			return runReplay(flags)
		},
	}
	cmd.Flags().IntVar(&flags.start, "start", 0, "first record index to replay")
	cmd.Flags().IntVar(&flags.end, "end", 0, "record index to stop before, exclusive (0 = end of file)")
	cmd.Flags().Int64Var(&flags.startTime, "start-time", 0, "minimum UTC nanosecond timestamp (chili dialect only)")
	cmd.Flags().StringSliceVar(&flags.tableNames, "table", nil, "restrict replay to these table names")
	cmd.Flags().BoolVar(&flags.v6, "v6", false, "treat the log as a legacy V6 q message log with a companion .size file")
	return cmd
}

func runReplay(flags *replayFlags) error {
	log := clog.NewLogger("chilid-replay")
	log.LogMode(true)

	progress := func(n int) { log.Debug("replayed %d records", n) }

	if flags.v6 {
		n, err := broker.ReplayQMsgsLog(flags.dataFile, flags.start, flags.end, flags.tableNames, 0, nil, progress)
		if err != nil {
			return err
		}
		fmt.Printf("replayed %d records\n", n)
		return nil
	}

	n, collected, err := broker.ReplayChiliMsgsLog(flags.dataFile, flags.start, flags.end, flags.startTime, flags.tableNames, false, nil)
	if err != nil {
		return err
	}
	fmt.Printf("collected %d records (evaluated count %d)\n", len(collected), n)
	return nil
}

func validateSeqCmd() *cobra.Command {
	flags := &validateSeqFlags{}
	cmd := &cobra.Command{
		Use:   "validate-seq <path>",
		Short: "Validate and truncate a sequence log left from an unclean shutdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidateSeq(args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.deserializeEach, "deep", false, "deserialize each record's payload instead of only skipping it")
	return cmd
}

func runValidateSeq(path string, flags *validateSeqFlags) error {
	start := time.Now()
	n, err := broker.ValidateSeq(path, flags.deserializeEach)
	if err != nil {
		return err
	}
	fmt.Printf("%d valid records (%s)\n", n, time.Since(start))
	return nil
}
