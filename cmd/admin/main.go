// Command admin inspects a claim database offline and drives a running
// server's admin API.
package main

import (
	"fmt"
	"os"
)

const usage = `usage:
  admin db [-data dir | -db path] [-limit n] [-viewer id] claims|ticks|audits
  admin claim get|put|rm [-url base] ...
  admin visualize [-url base] -viewer id (-claim id | -nearby r) [-type t] [-provider p]
  admin revert [-url base] -viewer id
  admin health [-url base]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "db":
		dbCmd(args)
	case "claim":
		claimCmd(args)
	case "visualize":
		visualizeCmd(args)
	case "revert":
		revertCmd(args)
	case "health":
		healthCmd(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}
