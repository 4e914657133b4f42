package domain

// Stats is a point-in-time summary of the ledger, used for gauges.
type Stats struct {
	Participants      map[Role]int          `json:"participants" yaml:"participants"`
	Produce           map[ProduceStatus]int `json:"produce" yaml:"produce"`
	OpenDisputes      int                   `json:"open_disputes" yaml:"open_disputes"`
	Proposals         int                   `json:"proposals" yaml:"proposals"`
	VaultBalance      uint64                `json:"vault_balance" yaml:"vault_balance"`
	StakeVaultBalance uint64                `json:"stake_vault_balance" yaml:"stake_vault_balance"`
}
