package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jtagvpi/pkg/tap"
)

var (
	tmsTo   string
	tmsFrom string
)

var tmsCmd = &cobra.Command{
	Use:   "tms",
	Short: "Clock a TMS sequence to navigate the TAP state machine",
	Long: `Compute the shortest TMS sequence between two TAP states and clock it into
the TAP with a TMS_SEQ command. The server consumes the bits without
replying.

State names ignore case and separators: "shift-dr", "ShiftDR", and
"SHIFT_DR" are all accepted.

Examples:
  jtagvpi tms --to shift-dr                      # from Test-Logic-Reset
  jtagvpi tms --from run-test-idle --to shift-ir`,
	RunE: runTMS,
}

func init() {
	rootCmd.AddCommand(tmsCmd)

	tmsCmd.Flags().StringVar(&tmsTo, "to", "", "target TAP state")
	tmsCmd.Flags().StringVar(&tmsFrom, "from", "TestLogicReset", "assumed current TAP state")

	tmsCmd.MarkFlagRequired("to")
}

func runTMS(cmd *cobra.Command, args []string) error {
	from, err := tap.ParseState(tmsFrom)
	if err != nil {
		return err
	}
	to, err := tap.ParseState(tmsTo)
	if err != nil {
		return err
	}

	seq, err := tap.Path(from, to)
	if err != nil {
		return err
	}
	if seq.Bits() == 0 {
		fmt.Printf("already in %s, nothing to clock\n", to)
		return nil
	}

	session, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	buf, bits := seq.Pack()
	if err := session.TMSSequence(buf, bits); err != nil {
		return fmt.Errorf("tms sequence failed: %w", err)
	}

	fmt.Printf("clocked %d TMS bit(s): %s -> %s\n", bits, from, to)
	if verbose {
		for i, state := range seq.States[1:] {
			tmsBit := 0
			if seq.TMS[i] {
				tmsBit = 1
			}
			fmt.Printf("  TMS=%d -> %s\n", tmsBit, state)
		}
	}
	return nil
}
