// Package all wires every built-in catalog backend into the catalog factory.
//
// Importing it for side effects registers the kinds:
//
//   - "postgres" (fieldsize/internal/catalog/postgres)
//   - "mssql"    (fieldsize/internal/catalog/mssql)
//   - "mysql"    (fieldsize/internal/catalog/mysql)
//   - "sqlite"   (fieldsize/internal/catalog/sqlite)
//
// A binary that needs only some backends can import those packages directly
// instead.
package all

import (
	_ "fieldsize/internal/catalog/mssql"
	_ "fieldsize/internal/catalog/mysql"
	_ "fieldsize/internal/catalog/postgres"
	_ "fieldsize/internal/catalog/sqlite"
)
