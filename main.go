package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lmordell/certisat/internal/checker"
	"github.com/lmordell/certisat/internal/sat"
	"github.com/lmordell/certisat/parsers"
)

type config struct {
	gzipped      bool
	check        bool
	checkVerbose bool
	checkLeaks   bool
	quiet        bool
	debug        bool
	maxConflicts int64
	timeout      time.Duration
	cpuProfile   string
	memProfile   string
}

func newRootCommand() *cobra.Command {
	cfg := &config{}

	cmd := &cobra.Command{
		Use:   "certisat <instance.cnf>",
		Short: "SAT solver with online DRUP proof checking",
		Long: "certisat solves DIMACS CNF instances with a CDCL solver. With " +
			"--check, every clause the solver learns or deletes is verified " +
			"on the fly by an online DRUP checker; an unsound derivation " +
			"aborts the process.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, args[0])
		},
	}

	cmd.Flags().BoolVar(&cfg.gzipped, "gzip", false, "instance file is gzipped")
	cmd.Flags().BoolVar(&cfg.check, "check", false, "verify the solver's derivations online")
	cmd.Flags().BoolVar(&cfg.checkVerbose, "check-verbose", false, "print checker statistics on exit")
	cmd.Flags().BoolVar(&cfg.checkLeaks, "check-leaks", false, "fail if unsatisfied clauses remain in the checker on exit")
	cmd.Flags().BoolVarP(&cfg.quiet, "quiet", "q", false, "suppress search progress output")
	cmd.Flags().BoolVar(&cfg.debug, "debug", false, "log every checked clause")
	cmd.Flags().Int64Var(&cfg.maxConflicts, "max-conflicts", -1, "stop after this many conflicts (-1: no limit)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", -1, "stop after this duration (-1: no limit)")
	cmd.Flags().StringVar(&cfg.cpuProfile, "cpuprof", "", "save a pprof CPU profile to this file")
	cmd.Flags().StringVar(&cfg.memProfile, "memprof", "", "save a pprof memory profile to this file")

	return cmd
}

func run(cfg *config, instanceFile string) error {
	options := sat.DefaultOptions
	options.Verbose = !cfg.quiet
	options.MaxConflicts = cfg.maxConflicts
	options.Timeout = cfg.timeout

	var chk *checker.Checker
	if cfg.check || cfg.checkVerbose || cfg.checkLeaks {
		chk = checker.New()
		if cfg.checkVerbose {
			chk.EnableVerbose()
		}
		if cfg.checkLeaks {
			chk.EnableLeakChecking()
		}
		if cfg.debug {
			chk.EnableLogging()
		}
		options.Proof = sat.NewCheckedProof(chk)
	}

	s := sat.NewSolver(options)
	if err := parsers.LoadDIMACS(instanceFile, cfg.gzipped, s); err != nil {
		return fmt.Errorf("could not parse instance: %w", err)
	}

	if !cfg.quiet {
		fmt.Printf("c variables:  %d\n", s.NumVariables())
		fmt.Printf("c clauses:    %d\n", s.NumConstraints())
	}

	t := time.Now()
	status := s.Solve()
	elapsed := time.Since(t)

	if !cfg.quiet {
		fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
		fmt.Printf("c conflicts:  %d (%.2f /sec)\n", s.TotalConflicts, float64(s.TotalConflicts)/elapsed.Seconds())
	}

	switch status {
	case sat.True:
		fmt.Println("s SATISFIABLE")
		if len(s.Models) > 0 {
			printModel(s.Models[len(s.Models)-1])
		}
	case sat.False:
		fmt.Println("s UNSATISFIABLE")
	default:
		fmt.Println("s UNKNOWN")
	}

	if chk != nil {
		chk.Release()
	}
	return nil
}

func printModel(model []bool) {
	sb := strings.Builder{}
	sb.WriteString("v")
	for i, b := range model {
		lit := i + 1
		if !b {
			lit = -lit
		}
		fmt.Fprintf(&sb, " %d", lit)
	}
	sb.WriteString(" 0")
	fmt.Println(sb.String())
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cmd := newRootCommand()

	var cpuProfile, memProfile string
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		cpuProfile, _ = c.Flags().GetString("cpuprof")
		memProfile, _ = c.Flags().GetString("memprof")
		if cpuProfile != "" {
			f, err := os.Create(cpuProfile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
		}
		return nil
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if cpuProfile != "" {
			pprof.StopCPUProfile()
		}
		if memProfile != "" {
			f, err := os.Create(memProfile)
			if err != nil {
				return fmt.Errorf("could not create memory profile: %w", err)
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				return fmt.Errorf("could not write memory profile: %w", err)
			}
		}
		return nil
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("certisat failed")
	}
}
