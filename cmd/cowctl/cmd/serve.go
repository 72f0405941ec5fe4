package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmcow/cowtarget"
)

var serveCmd = &cobra.Command{
	Use:   "serve <origin> <cow>",
	Short: "Serve a line-oriented read/write protocol against a target on stdin",
	Long: `serve activates a target over origin and cow and then reads commands
from stdin, one per line, until EOF or a "quit" line:

  read <sector> <len>        read len sectors starting at sector, print hex
  write <sector> <hexbytes>  write hexbytes (a multiple of the sector size)
                              starting at sector
  quit                       tear the target down and exit

It exists to exercise the mapper and CoW job pipeline without a real
block-device framework.`,
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

		return serveLoop(t)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveLoop(t *cowtarget.Target) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit":
			return nil
		case "read":
			if err := handleRead(t, fields); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "write":
			if err := handleWrite(t, fields); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", fields[0])
		}
	}
	return scanner.Err()
}

func handleRead(t *cowtarget.Target, fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: read <sector> <len>")
	}
	sector, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return err
	}
	nSectors, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return err
	}

	req := &cowtarget.Request{
		Dir:         cowtarget.Read,
		StartSector: sector,
		Buffer:      make([]byte, nSectors*cowtarget.SectorSize),
	}
	outcome := t.Map(req)
	if outcome == cowtarget.Kill {
		return fmt.Errorf("request killed")
	}
	if err := req.Submit(); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(req.Buffer))
	return nil
}

func handleWrite(t *cowtarget.Target, fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: write <sector> <hexbytes>")
	}
	sector, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return err
	}
	buf, err := hex.DecodeString(fields[2])
	if err != nil {
		return err
	}
	if len(buf)%cowtarget.SectorSize != 0 {
		return fmt.Errorf("payload length %d is not a multiple of sector size %d", len(buf), cowtarget.SectorSize)
	}

	req := &cowtarget.Request{
		Dir:         cowtarget.Write,
		StartSector: sector,
		Buffer:      buf,
	}
	// Capture the baseline before Map: once Map returns Submitted the job
	// may already have completed and been counted.
	before := t.Stats().RequestsCompleted
	outcome := t.Map(req)
	switch outcome {
	case cowtarget.Kill:
		return fmt.Errorf("request killed")
	case cowtarget.Remapped:
		if err := req.Submit(); err != nil {
			return err
		}
		fmt.Println("ok")
	case cowtarget.Submitted:
		if err := waitRequestCompleted(t, before, 5*time.Second); err != nil {
			return err
		}
		fmt.Println("ok (async)")
	}
	return nil
}

// waitRequestCompleted polls until RequestsCompleted has advanced past
// before or timeout elapses. ChunkResident alone isn't enough: the bit is
// set in UPDATING, strictly before the job replays this very write onto
// cow in COMPLETING, so a caller that only waits on residency could print
// "ok" before its own payload has actually landed. A real block-device
// framework would get a completion callback instead of polling.
func waitRequestCompleted(t *cowtarget.Target, before uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if t.Stats().RequestsCompleted > before {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for the write to complete")
}
