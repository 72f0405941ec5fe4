package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmcow/cowtarget"
)

var initCmd = &cobra.Command{
	Use:   "init-cow <path> <nr-chunks>",
	Short: "Lay out a fresh cow device",
	Long: `init-cow creates path (truncating it if it already exists) and sizes
it to hold the reserved metadata region plus nr-chunks data chunks, all
zeroed, ready for Activate. A cow device must come from this command (or an
equivalent zeroed layout) since cowtarget has no on-disk marker to tell a
fresh device apart from a recycled one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		nrChunks, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return err
		}
		return cowtarget.InitCowDevice(args[0], nrChunks)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
