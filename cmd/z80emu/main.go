package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oisee/z80emu/pkg/coverage"
	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/decode"
	"github.com/oisee/z80emu/pkg/inst"
	"github.com/oisee/z80emu/pkg/machine"
	"github.com/oisee/z80emu/pkg/snapshot"
)

var log = logrus.New()

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "z80emu",
		Short:        "Z80 instruction decoder and emulator core",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd(), decodeCmd(), coverageCmd(), snapshotCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadOptions places a raw binary in memory.
type loadOptions struct {
	org uint16
	pc  uint16
	sp  uint16
}

func (o *loadOptions) addFlags(fs *pflag.FlagSet) {
	fs.Uint16Var(&o.org, "org", 0, "Load address")
	fs.Uint16Var(&o.pc, "pc", 0, "Start address (default: --org)")
	fs.Uint16Var(&o.sp, "sp", 0, "Initial stack pointer")
}

func runCmd() *cobra.Command {
	var (
		load     loadOptions
		from     string
		cfg      machine.Config
		saveTo   string
		maxSteps uint64
	)

	cmd := &cobra.Command{
		Use:   "run [program.bin]",
		Short: "Run a raw binary or a snapshot until HALT or a stop condition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *cpu.State
			switch {
			case from != "":
				st, err := loadState(from)
				if err != nil {
					return err
				}
				s = st
			case len(args) == 1:
				code, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if len(code) > 0x10000 {
					return fmt.Errorf("%s: %d bytes does not fit in memory", args[0], len(code))
				}
				s = cpu.New()
				for i, b := range code {
					s.Mem[load.org+uint16(i)] = b
				}
				s.PC = load.org
				if cmd.Flags().Changed("pc") {
					s.PC = load.pc
				}
				s.SP = load.sp
			default:
				return fmt.Errorf("need a program file or --from")
			}
			s.Ports = &portLog{log: log}

			cfg.MaxSteps = maxSteps
			cfg.Log = log
			if cfg.Trace && !log.IsLevelEnabled(logrus.DebugLevel) {
				log.SetLevel(logrus.DebugLevel)
			}
			m, err := machine.New(s, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			res, runErr := m.Run(ctx)

			fmt.Printf("Stopped: %s after %d steps at PC=%04Xh\n", res.Reason, res.Steps, res.PC)
			printRegs(s)
			if saveTo != "" {
				if err := saveState(saveTo, s); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", saveTo)
			}
			return runErr
		},
	}
	load.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&from, "from", "", "Start from a snapshot (.sna or gob)")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 10_000_000, "Step budget (0 = unlimited)")
	cmd.Flags().StringVar(&cfg.StopWhen, "stop-when", "", `Stop condition, e.g. "pc == 0x8000 and a == 0"`)
	cmd.Flags().BoolVar(&cfg.Trace, "trace", false, "Log every executed instruction")
	cmd.Flags().StringVar(&saveTo, "save", "", "Write the final state to a snapshot (.sna or gob)")
	return cmd
}

func decodeCmd() *cobra.Command {
	var org uint16
	var raw []byte

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Disassemble a raw binary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := raw
			if len(args) == 1 {
				b, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				code = b
			}
			if len(code) == 0 {
				return fmt.Errorf("nothing to decode: give a file or --bytes")
			}
			entries, err := decode.All(code)
			for _, e := range entries {
				b := code[e.Offset : e.Offset+int(e.Len)]
				fmt.Printf("%04X  %-12s  %s\n", org+uint16(e.Offset), fmt.Sprintf("% X", b), e.Inst)
			}
			return err
		},
	}
	cmd.Flags().Uint16Var(&org, "org", 0, "Address of the first byte")
	cmd.Flags().BytesHexVar(&raw, "bytes", nil, "Bytes to decode as hex, e.g. DD210080")
	return cmd
}

func coverageCmd() *cobra.Command {
	var output string
	var numWorkers int

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Decode every opcode page and check that each entry re-encodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := coverage.Sweep(numWorkers)

			fmt.Printf("Opcode coverage\n")
			fmt.Printf("  Probed: %d (%d prefix slots)\n", r.Probed, r.Prefixes)
			fmt.Printf("  Known: %d encodings, %d of %d instructions\n", r.Known, len(r.Hits), inst.OpCodeCount-1)
			fmt.Printf("  Unknown: %d\n", len(r.Unknown))
			fmt.Printf("  Mismatches: %d\n", len(r.Mismatches))
			fmt.Printf("  Stubs: %d\n", len(r.Stubs))
			for _, m := range r.Mismatches {
				log.WithFields(logrus.Fields{
					"page":  m.Page,
					"bytes": fmt.Sprintf("% X", []byte(m.Bytes)),
					"text":  m.Text,
				}).Warn("round trip failed")
			}
			for _, name := range r.Missing {
				log.WithField("op", name).Warn("no encoding decodes to instruction")
			}

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := r.WriteJSON(f); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", output)
			}
			if !r.OK() {
				return fmt.Errorf("coverage check failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Output JSON file path")
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and convert machine snapshots",
	}

	var border uint8
	convertCmd := &cobra.Command{
		Use:   "convert [in] [out]",
		Short: "Convert between .sna and gob snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadState(args[0])
			if err != nil {
				return err
			}
			if isSNA(args[1]) {
				err = snapshot.SaveSNA(args[1], s, snapshot.SNA{Border: border})
			} else {
				err = snapshot.Save(args[1], s)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Written to %s\n", args[1])
			return nil
		},
	}
	convertCmd.Flags().Uint8Var(&border, "border", 7, "Border colour for .sna output")

	inspectCmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print registers and the instruction at PC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadState(args[0])
			if err != nil {
				return err
			}
			printRegs(s)
			n, in, err := decode.ParseNext(&memReader{mem: &s.Mem, addr: s.PC})
			if err != nil {
				return err
			}
			fmt.Printf("Next: %04X  %s (%d bytes)\n", s.PC, in, n)
			return nil
		},
	}

	cmd.AddCommand(convertCmd, inspectCmd)
	return cmd
}
