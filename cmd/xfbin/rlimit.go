package main

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// bumpRlimitNOFILE raises RLIMIT_NOFILE to the kernel's advertised maximum,
// mirroring cmd/distri/distri.go's startup bump. Called before a -batch
// unpack run, whose workers open files concurrently.
func bumpRlimitNOFILE() error {
	fileMax, err := readUintFile("/proc/sys/fs/file-max")
	if err != nil {
		return err
	}
	nrOpen, err := readUintFile("/proc/sys/fs/nr_open")
	if err != nil {
		return err
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: max, Max: max})
}

func readUintFile(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
}
