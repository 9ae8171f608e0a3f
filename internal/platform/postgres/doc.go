// Package postgres implements the remote row store over PostgreSQL:
// row-level upserts keyed by each table's declared conflict columns,
// filtered selects per account, and the embedded schema migrations. It
// handles the mapping between domain records and database rows and the
// translation of driver errors into store errors.
package postgres
