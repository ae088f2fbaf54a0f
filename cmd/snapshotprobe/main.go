package main

import (
	"flag"
	"fmt"
	"os"

	"bugingest/internal/probe"
)

// main is the entrypoint for the snapshot probing CLI. It samples blobs from
// a snapshot directory and prints per-field statistics, flagging fields that
// are neither reports-table columns nor custom fields.
//
// The output is meant for a human deciding whether the destination schema
// needs to grow before the next ingestion run.
func main() {
	var (
		flagDir = flag.String(
			"dir",
			"",
			"snapshot directory to sample",
		)
		flagMax = flag.Int(
			"max-files",
			200,
			"number of blobs to sample; 0 samples everything",
		)
		flagJSON = flag.Bool(
			"json",
			false,
			"emit the report as JSON instead of a text table",
		)
	)
	flag.Parse()

	if *flagDir == "" {
		fmt.Fprintln(os.Stderr, "usage: snapshotprobe -dir <snapshot dir> [-max-files N] [-json]")
		os.Exit(2)
	}

	opts := probe.Options{Dir: *flagDir, MaxFiles: *flagMax, OutputJSON: *flagJSON}
	rep, err := probe.Scan(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
	out, err := probe.Render(rep, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: render: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}
