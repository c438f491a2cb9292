// Command rowgrid loads tabular data into an in-memory grid and filters,
// sorts, searches and exports it.
package main

import "github.com/mesh-intelligence/rowgrid/internal/cli"

func main() {
	cli.Execute()
}
