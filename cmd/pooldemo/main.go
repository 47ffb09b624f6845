// Command pooldemo runs sample workloads through a priority worker pool
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
