package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the TAP controller",
	Long: `Send a RESET command and print the server's 4-byte reply.

The reply fields (response, tdo, mode, status) are diagnostics from the VPI
server; the protocol does not define success codes for them.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	resp, err := session.Reset()
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Printf("TAP reset acknowledged: %s\n", resp)
	return nil
}
