// Command almanac is a local-first organizer for items, habits and
// routines that reconciles with a remote store.
package main

import "github.com/mesh-intelligence/almanac/internal/cli"

func main() {
	cli.Execute()
}
