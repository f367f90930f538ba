// Command cloudtour provisions an EC2 instance, an S3 bucket and an SQS
// FIFO queue, exercises them, and tears down what it created.
//
// Point it at the bundled simulator with:
//
//	export CLOUDTOUR_ENDPOINT_URL=http://localhost:4566
package main

import (
	"fmt"
	"os"
)

var version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "list", "ls":
		err = cmdList(os.Args[2:])
	case "cleanup":
		err = cmdCleanup(os.Args[2:])
	case "version":
		fmt.Println("cloudtour " + version)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: cloudtour <command> [flags]

Commands:
  run       Provision, exercise, list and tear down the tour resources
  list      List resources managed by cloudtour
  cleanup   Remove leftovers of earlier runs (requires -yes)
  version   Print version

Flags:
  -env-file   dotenv file to load (default ".env")
  -config     TOML config file (optional)
  -log-level  log level: debug, info, warn, error`)
}
