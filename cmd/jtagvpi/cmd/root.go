package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jtagvpi/internal/config"
	"github.com/OpenTraceLab/jtagvpi/pkg/vpi"
)

var (
	// Global flags
	host    string
	port    int
	timeout time.Duration
	retries int
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "jtagvpi",
	Short: "JTAG VPI client for simulated and remote TAPs",
	Long: `A client for the JTAG VPI wire protocol: drive the Test Access Port of a
hardware simulator or FPGA bitstream over a TCP socket.

Examples:
  jtagvpi reset                                  # Reset the TAP on localhost:3333
  jtagvpi scan --bits 32                         # Shift 32 zero bits, print TDO
  jtagvpi scan --bits 16 --tdi a5f0 --tms 0000   # Shift a TDI pattern
  jtagvpi tms --to shift-dr                      # Walk the TAP to Shift-DR
  jtagvpi idcode                                 # Read and decode the IDCODE`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	def := config.Default()
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", def.Host, "VPI server host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", def.Port, "VPI server port")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", def.Timeout(), "receive deadline per operation")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", def.Retries, "connect attempts before giving up")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file with connection defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the CLI logger; debug level only with --verbose.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// resolveConfig merges the optional config file with flag overrides. Flags
// that were set explicitly win over the file.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("timeout") {
		cfg.TimeoutMS = int(timeout / time.Millisecond)
	}
	if flags.Changed("retries") {
		cfg.Retries = retries
	}
	return cfg, cfg.Validate()
}

// openSession dials the VPI server and wraps the connection in a session.
// Connect attempts are spaced out because a freshly launched simulation may
// not be listening yet.
func openSession(cmd *cobra.Command) (*vpi.Session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := newLogger()

	var transport *vpi.TCPTransport
	for attempt := 1; ; attempt++ {
		transport, err = vpi.Dial(cfg.Host, cfg.Port, cfg.Timeout())
		if err == nil {
			break
		}
		if attempt >= cfg.Retries {
			return nil, fmt.Errorf("connect to %s:%d after %d attempt(s): %w",
				cfg.Host, cfg.Port, attempt, err)
		}
		log.Debug().Err(err).Int("attempt", attempt).Msg("connect failed, retrying")
		time.Sleep(500 * time.Millisecond)
	}
	log.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connected")

	session := vpi.NewSession(transport)
	session.SetTimeout(cfg.Timeout())
	session.SetLogger(log)
	return session, nil
}
