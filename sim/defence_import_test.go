package sim_test

// Blank import triggers sim/defence's init(), which registers NewDefenceFunc.
// This allows package sim's internal test files to run lgrola and ctasks
// scenarios without directly importing sim/defence (which would create an
// import cycle).
import _ "github.com/market-sim/market-sim/sim/defence"
