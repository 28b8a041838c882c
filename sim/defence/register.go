// register.go wires sim/defence constructors into the sim package's registration
// variable (NewDefenceFunc). This init() runs when any package imports
// sim/defence, breaking the import cycle between sim/ (interface owner) and
// sim/defence/ (implementation). Production code imports sim/defence directly;
// test code in package sim uses defence_import_test.go for the blank import.
package defence

import "github.com/market-sim/market-sim/sim"

func init() {
	sim.NewDefenceFunc = New
}
