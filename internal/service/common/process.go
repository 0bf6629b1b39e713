//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"os"

	"github.com/mitchellh/go-ps"
)

// terminateProcessTree kills rootPID and every process descending from it.
// npm spawns node, node-gyp and compilers; killing only npm would orphan them.
func terminateProcessTree(rootPID int) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	children := make(map[int][]int, len(processList))
	for _, process := range processList {
		children[process.PPid()] = append(children[process.PPid()], process.Pid())
	}

	thisProcessID := os.Getpid()

	// Children first, so nothing gets re-parented before it is reached.
	for _, pid := range descendants(children, rootPID) {
		if pid == thisProcessID {
			continue
		}

		if err = killProcess(pid); err != nil {
			return err
		}
	}

	return killProcess(rootPID)
}

// descendants returns the process IDs below rootPID, deepest first.
func descendants(children map[int][]int, rootPID int) []int {
	var (
		order []int
		queue = []int{rootPID}
		seen  = map[int]struct{}{rootPID: {}}
	)

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		for _, child := range children[pid] {
			if _, ok := seen[child]; ok {
				continue
			}

			seen[child] = struct{}{}
			order = append(order, child)
			queue = append(queue, child)
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	return order
}

func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err = process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	return nil
}
