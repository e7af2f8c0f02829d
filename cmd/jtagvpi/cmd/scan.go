package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jtagvpi/pkg/vpi"
)

var (
	scanBits uint32
	scanTMS  string
	scanTDI  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Shift bits through the scan chain",
	Long: `Perform one SCAN operation: send the TMS and TDI buffers, then print the
TDO bits the TAP returned.

Buffers are given as hex strings of exactly ceil(bits/8) bytes and default
to all zeros. Bits are shifted LSB first within each byte.

Examples:
  jtagvpi scan --bits 32                         # 32 zero bits
  jtagvpi scan --bits 16 --tdi a5f0              # TDI pattern, TMS zeros
  jtagvpi scan --bits 8 --tms 1f --tdi 00        # 5 TMS=1 clocks, then 3 idle`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Uint32Var(&scanBits, "bits", 0, "number of bits to shift")
	scanCmd.Flags().StringVar(&scanTMS, "tms", "", "TMS buffer as hex (default all zeros)")
	scanCmd.Flags().StringVar(&scanTDI, "tdi", "", "TDI buffer as hex (default all zeros)")

	scanCmd.MarkFlagRequired("bits")
}

// scanBuffer decodes a hex flag into a buffer of exactly want bytes, filling
// with zeros when the flag is empty.
func scanBuffer(name, value string, want int) ([]byte, error) {
	if value == "" {
		return make([]byte, want), nil
	}
	buf, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	if len(buf) != want {
		return nil, fmt.Errorf("--%s is %d bytes, need %d for %d bits", name, len(buf), want, scanBits)
	}
	return buf, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanBits == 0 {
		return fmt.Errorf("--bits must be positive")
	}
	required := vpi.ScanBytes(scanBits)

	tms, err := scanBuffer("tms", scanTMS, required)
	if err != nil {
		return err
	}
	tdi, err := scanBuffer("tdi", scanTDI, required)
	if err != nil {
		return err
	}

	session, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	tdo, err := session.Scan(tms, tdi, scanBits)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Printf("TDO (%d bits, %d bytes): %s\n", scanBits, len(tdo), hex.EncodeToString(tdo))
	return nil
}
