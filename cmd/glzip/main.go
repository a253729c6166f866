// Command glzip builds, inspects and reorders CSR graphs.
//
//	glzip stats edges.tsv
//	glzip convert edges.npy -o graph.csr
//	glzip optimize graph.csr --sizes 15,10 --train-mask train.npy -o opt.csr --perm-out perm.npy
package main

import (
	"os"
)

func main() {
	// Errors are printed by cobra; main only sets the exit status.
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
