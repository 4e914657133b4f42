/*
Package ports defines the driven ports (interfaces) of the furrow ledger.

These interfaces decouple the instruction engine from storage, allowing the
same operations to run against memory, a local file, Redis or Postgres.

# Key Interfaces

  - LedgerStore: runs serializable read-modify-write transactions over records.
  - ReadTx / Tx: the record view handed to a transaction function.
*/
package ports
