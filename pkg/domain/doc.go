/*
Package domain contains the records, enums and typed errors of the furrow ledger.

It defines the accounts stored in the ledger and the rules that can be checked
without touching storage. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - Participant: a registered actor holding exactly one Role.
  - Produce: a harvested batch and its lifecycle status.
  - Dispute: the single dispute attached to a Produce.
  - Proposal: a governance item with a one-identity-one-vote tally.
  - Vault / TokenAccount: the escrow authority and its custody balances.
  - Event: a journal entry written atomically with the change it describes.

Record keys are derived with DeriveKey so external callers can recompute them.
*/
package domain
