package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmcow/cowtarget"
)

var activateCmd = &cobra.Command{
	Use:   "activate <origin> <cow>",
	Short: "Activate a target, print its bitmap summary, then tear it down",
	Long: `activate opens origin and cow, sizes the virtual device to the
origin file's length, activates a target, prints how many chunks are
already resident on cow, and tears it back down. It exists for inspecting
a target's on-disk state without writing a full serving loop.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		sectors, err := originSectors(args[0])
		if err != nil {
			return err
		}

		t, err := cowtarget.Activate(sectors, args,
			cowtarget.WithJobPoolCapacity(poolSize),
			cowtarget.WithWorkerConcurrency(workers),
			cowtarget.WithLogger(newLogger()),
		)
		if err != nil {
			return err
		}
		defer t.Teardown()

		resident := uint64(0)
		for c := uint64(0); c < t.NrChunks(); c++ {
			if t.ChunkResident(c) {
				resident++
			}
		}
		fmt.Printf("target %s: %d chunks, resident=%d\n", t.ID(), t.NrChunks(), resident)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
}

func originSectors(path string) (uint64, error) {
	dev, err := cowtarget.OpenFileDevice(path, true)
	if err != nil {
		return 0, fmt.Errorf("open origin: %w", err)
	}
	defer dev.Close()
	size, err := dev.Size()
	if err != nil {
		return 0, fmt.Errorf("stat origin: %w", err)
	}
	return uint64(size) / cowtarget.SectorSize, nil
}
