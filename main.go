// Command tausplit simulates stochastic chemical reaction networks using
// the Gillespie exact SSA or the tau-split / tau-split6 recursive
// tau-leaping algorithms. See cmd.Execute for the CLI surface.
package main

import (
	"os"

	"github.com/tausplit/tausplit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
