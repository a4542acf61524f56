// Command fieldsize runs the metadata-driven string length steps over a CSV
// file: check (StringCheckDynamic) flags values longer than their database
// column allows, resize (StringResizeDynamic) truncates them.
//
// Usage:
//
//	fieldsize run -c run.yaml
//	fieldsize validate -c run.yaml
//	fieldsize resolve -c run.yaml
//	fieldsize kinds
package main

import (
	"os"

	// register every catalog backend with the catalog factory.
	_ "fieldsize/internal/catalog/all"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
