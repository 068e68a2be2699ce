package device

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Probe checks that the sound device directory exists, is accessible, and
// holds at least one capture node (pcmC*D*c).
func Probe(soundDir string) error {
	info, err := os.Stat(soundDir)
	if err != nil {
		return Classify(err)
	}
	if !info.IsDir() {
		return Classify(fmt.Errorf("%s is not a directory: %w", soundDir, unix.ENOTDIR))
	}
	if err := unix.Access(soundDir, unix.R_OK|unix.X_OK); err != nil {
		return Classify(&os.PathError{Op: "access", Path: soundDir, Err: err})
	}

	nodes, err := filepath.Glob(filepath.Join(soundDir, "pcmC*D*c"))
	if err != nil {
		return Classify(err)
	}
	if len(nodes) == 0 {
		return Classify(&os.PathError{Op: "probe", Path: soundDir, Err: unix.ENODEV})
	}
	for _, node := range nodes {
		if err := unix.Access(node, unix.R_OK|unix.W_OK); err == nil {
			return nil
		}
	}
	return Classify(&os.PathError{Op: "access", Path: nodes[0], Err: unix.EACCES})
}
