package cowtarget

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// testLogger returns a logrus logger with output discarded, so tests don't
// spam stdout with activation/teardown lines.
func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestTarget lays out an origin file of originSectors sectors (filled
// with a recognizable pattern) and a matching fresh cow device, then
// activates a Target over them. The caller must arrange for Teardown.
func newTestTarget(t *testing.T, originSectors uint64, opts ...Option) (*Target, string, string) {
	t.Helper()

	dir := t.TempDir()
	originPath := filepath.Join(dir, "origin.img")
	cowPath := filepath.Join(dir, "cow.img")

	origin := make([]byte, originSectors*SectorSize)
	for i := range origin {
		origin[i] = byte(i)
	}
	if err := os.WriteFile(originPath, origin, 0644); err != nil {
		t.Fatalf("write origin fixture: %v", err)
	}

	nrChunks := nrChunksForSectors(originSectors)
	if err := InitCowDevice(cowPath, nrChunks); err != nil {
		t.Fatalf("InitCowDevice: %v", err)
	}

	allOpts := append([]Option{WithLogger(testLogger())}, opts...)
	tgt, err := Activate(originSectors, []string{originPath, cowPath}, allOpts...)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return tgt, originPath, cowPath
}
