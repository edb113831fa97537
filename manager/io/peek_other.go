//go:build !linux && !darwin && !windows

package io

import "os"

func peekPipe(f *os.File) (int, error) {
	ready, err := probe(f, probeRead)
	if err != nil || !ready {
		return 0, err
	}
	return 1, nil
}
