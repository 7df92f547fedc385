package main

import (
	"fmt"
	"os"
)

func main() {
	opts := &options{}
	err := newRootCmd(opts).Execute()
	if cerr := opts.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "jp2kd:", err)
		os.Exit(1)
	}
}
