package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel string
	workers  int
	poolSize int
)

var rootCmd = &cobra.Command{
	Use:   "cowctl",
	Short: "Inspect and drive cowtarget copy-on-write devices",
	Long: `cowctl is a command-line front end for the cowtarget copy-on-write
core: it can lay out a fresh cow device, activate a target against an
origin/cow file pair, and serve a small line-oriented protocol against one
for manual testing without a real block-device framework.`,
}

// Execute runs the root command, exiting the process with status 1 on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cowctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := pflag.NewFlagSet("cowctl", pflag.ContinueOnError)
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.IntVar(&workers, "workers", 0, "max concurrent CoW jobs (0 = unbounded)")
	flags.IntVar(&poolSize, "job-pool-size", 256, "number of pre-allocated CoW job records")
	rootCmd.PersistentFlags().AddFlagSet(flags)
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
