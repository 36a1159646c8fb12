// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects makes these kinds available:
//
//   - "sqlite"   (qtool/internal/storage/sqlite)
//   - "postgres" (qtool/internal/storage/postgres)
//   - "mysql"    (qtool/internal/storage/mysql)
//   - "mssql"    (qtool/internal/storage/mssql)
package all

import (
	_ "qtool/internal/storage/mssql"
	_ "qtool/internal/storage/mysql"
	_ "qtool/internal/storage/postgres"
	_ "qtool/internal/storage/sqlite"
)
