package domain

import "time"

// Participant is one registered supply-chain actor. Its role never changes.
type Participant struct {
	Owner       Identity  `json:"owner" yaml:"owner"`
	Role        Role      `json:"role" yaml:"role"`
	Name        string    `json:"name" yaml:"name"`
	ContactInfo string    `json:"contact_info" yaml:"contact_info"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Produce tracks one harvested batch from the farm to final settlement.
// FarmerPrice and TransporterFee are fixed when the batch is logged.
type Produce struct {
	ProduceID         uint64        `json:"produce_id" yaml:"produce_id"`
	Farmer            Identity      `json:"farmer" yaml:"farmer"`
	Transporter       Identity      `json:"transporter,omitempty" yaml:"transporter,omitempty"`
	Retailer          Identity      `json:"retailer,omitempty" yaml:"retailer,omitempty"`
	ProduceType       string        `json:"produce_type" yaml:"produce_type"`
	Quantity          uint64        `json:"quantity" yaml:"quantity"`
	HarvestDate       int64         `json:"harvest_date" yaml:"harvest_date"`
	Quality           uint8         `json:"quality" yaml:"quality"`
	VerifiedQuality   uint8         `json:"verified_quality" yaml:"verified_quality"`
	Status            ProduceStatus `json:"status" yaml:"status"`
	LastUpdated       time.Time     `json:"last_updated" yaml:"last_updated"`
	TransportTemp     int16         `json:"transport_temp" yaml:"transport_temp"`
	TransportHumidity uint8         `json:"transport_humidity" yaml:"transport_humidity"`
	PickupConfirmed   bool          `json:"pickup_confirmed" yaml:"pickup_confirmed"`
	DeliveryConfirmed bool          `json:"delivery_confirmed" yaml:"delivery_confirmed"`
	DisputeRaised     bool          `json:"dispute_raised" yaml:"dispute_raised"`
	QrCodeURI         string        `json:"qr_code_uri" yaml:"qr_code_uri"`
	FarmerPrice       uint64        `json:"farmer_price" yaml:"farmer_price"`
	TransporterFee    uint64        `json:"transporter_fee" yaml:"transporter_fee"`
}

// SettlementAmount is what the vault must hold to settle this batch.
// The sum is validated against overflow when the batch is logged.
func (p *Produce) SettlementAmount() uint64 {
	return p.FarmerPrice + p.TransporterFee
}

// Dispute is the single dispute attached to a produce batch.
type Dispute struct {
	ProduceID   uint64        `json:"produce_id" yaml:"produce_id"`
	ProduceKey  string        `json:"produce_key" yaml:"produce_key"`
	Raiser      Identity      `json:"raiser" yaml:"raiser"`
	Description string        `json:"description" yaml:"description"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	PriorStatus ProduceStatus `json:"prior_status" yaml:"prior_status"`
	Automatic   bool          `json:"automatic,omitempty" yaml:"automatic,omitempty"`
	Resolved    bool          `json:"resolved" yaml:"resolved"`
	// Resolution is true when the original terms were upheld.
	Resolution bool       `json:"resolution" yaml:"resolution"`
	Arbitrator Identity   `json:"arbitrator,omitempty" yaml:"arbitrator,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	// ReopenedAt is set when a failed inspection reopened a resolved dispute.
	ReopenedAt *time.Time `json:"reopened_at,omitempty" yaml:"reopened_at,omitempty"`
}

// UpholdsOriginalTerms reports whether the dispute was resolved in favour of
// the original terms, which reopens the settlement path.
func (d *Dispute) UpholdsOriginalTerms() bool {
	return d.Resolved && d.Resolution
}

// Proposal is a governance item tallied one identity, one vote.
type Proposal struct {
	ProposalID   uint64                `json:"proposal_id" yaml:"proposal_id"`
	Proposer     Identity              `json:"proposer" yaml:"proposer"`
	Description  string                `json:"description" yaml:"description"`
	VotesFor     uint64                `json:"votes_for" yaml:"votes_for"`
	VotesAgainst uint64                `json:"votes_against" yaml:"votes_against"`
	Executed     bool                  `json:"executed" yaml:"executed"`
	CreatedAt    time.Time             `json:"created_at" yaml:"created_at"`
	Voters       map[Identity]struct{} `json:"voters" yaml:"-"`
}

// HasVoted is an O(1) membership check.
func (p *Proposal) HasVoted(voter Identity) bool {
	_, ok := p.Voters[voter]
	return ok
}

// Vault is the singleton escrow authority. Balances live in its custody accounts.
type Vault struct {
	Bump            uint8     `json:"bump" yaml:"bump"`
	Admin           Identity  `json:"admin" yaml:"admin"`
	Currency        string    `json:"currency" yaml:"currency"`
	PaymentVaultKey string    `json:"payment_vault_key" yaml:"payment_vault_key"`
	StakeVaultKey   string    `json:"stake_vault_key" yaml:"stake_vault_key"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// TokenAccount is a custody balance in the vault currency.
type TokenAccount struct {
	Owner    Identity `json:"owner" yaml:"owner"`
	Currency string   `json:"currency" yaml:"currency"`
	Balance  uint64   `json:"balance" yaml:"balance"`
}

// Credit adds amount, refusing to wrap.
func (a *TokenAccount) Credit(amount uint64) error {
	if a.Balance > ^uint64(0)-amount {
		return ErrOverflow.With("Credit", "balance of %s", a.Owner)
	}
	a.Balance += amount
	return nil
}

// Debit removes amount, refusing to go negative.
func (a *TokenAccount) Debit(amount uint64) error {
	if a.Balance < amount {
		return ErrInsufficientFunds.With("Debit", "%s holds %d, needs %d", a.Owner, a.Balance, amount)
	}
	a.Balance -= amount
	return nil
}

// Stake records how much an identity has locked in the stake vault.
type Stake struct {
	Staker    Identity  `json:"staker" yaml:"staker"`
	Amount    uint64    `json:"amount" yaml:"amount"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
