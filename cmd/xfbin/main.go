// Command xfbin inspects and round-trips XFBIN container files: list,
// info, unpack, repack, and bundle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

type cmd struct {
	fn func(ctx context.Context, args []string) error
}

var verbs = map[string]cmd{
	"list":   {list},
	"info":   {info},
	"unpack": {unpack},
	"repack": {repack},
	"bundle": {bundle},
}

func funcmain() error {
	flag.Parse()

	args := flag.Args()
	verb := ""
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "" || verb == "help" {
		fmt.Fprintf(os.Stderr, "xfbin [-flags] <command> [-flags] <args>\n\n")
		fmt.Fprintf(os.Stderr, "To get help on any command, use xfbin <command> -help.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tlist   - list every chunk in a container\n")
		fmt.Fprintf(os.Stderr, "\tinfo   - print a chunk-type histogram for a container\n")
		fmt.Fprintf(os.Stderr, "\tunpack - export a container's Binary/Unknown chunk payloads to a directory\n")
		fmt.Fprintf(os.Stderr, "\trepack - rebuild a container from an unpacked directory's edited payloads\n")
		fmt.Fprintf(os.Stderr, "\tbundle - pack a container's payloads into a single .cpio.gz archive\n")
		os.Exit(2)
	}

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: xfbin <command> [options]\n")
		os.Exit(2)
	}

	ctx, canc := interruptibleContext()
	defer canc()
	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return nil
}

func main() {
	log.SetFlags(0)
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
