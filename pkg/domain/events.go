package domain

import (
	"context"
	"time"
)

// Op names the ledger instructions. These are also the wire names used by Instruction.
type Op string

const (
	OpRegister        Op = "register_participant"
	OpInitializeVault Op = "initialize_vault"
	OpDeposit         Op = "deposit"
	OpWithdraw        Op = "withdraw"
	OpFundVault       Op = "fund_vault"
	OpLogHarvest      Op = "log_harvest"
	OpRecordPickup    Op = "record_pickup"
	OpConfirmPickup   Op = "confirm_pickup"
	OpRecordDelivery  Op = "record_delivery"
	OpConfirmDelivery Op = "confirm_delivery"
	OpVerifyQuality   Op = "verify_quality"
	OpRaiseDispute    Op = "raise_dispute"
	OpResolveDispute  Op = "resolve_dispute"
	OpCreateProposal  Op = "create_proposal"
	OpVoteProposal    Op = "vote_proposal"
	OpExecuteProposal Op = "execute_proposal"
	OpStakeTokens     Op = "stake_tokens"
	OpUnstakeTokens   Op = "unstake_tokens"
)

// Settlement reports the funds moved by a delivery confirmation.
type Settlement struct {
	ProduceID         uint64   `json:"produce_id" yaml:"produce_id"`
	Farmer            Identity `json:"farmer" yaml:"farmer"`
	Transporter       Identity `json:"transporter" yaml:"transporter"`
	FarmerAmount      uint64   `json:"farmer_amount" yaml:"farmer_amount"`
	TransporterAmount uint64   `json:"transporter_amount" yaml:"transporter_amount"`
}

// Event is one journal entry, written in the same transaction as the change it describes.
type Event struct {
	ID         string         `json:"id" yaml:"id"`
	Timestamp  time.Time      `json:"timestamp" yaml:"timestamp"`
	Op         Op             `json:"op" yaml:"op"`
	Signer     Identity       `json:"signer" yaml:"signer"`
	Key        string         `json:"key" yaml:"key"`
	ProduceID  *uint64        `json:"produce_id,omitempty" yaml:"produce_id,omitempty"`
	ProposalID *uint64        `json:"proposal_id,omitempty" yaml:"proposal_id,omitempty"`
	Status     ProduceStatus  `json:"status,omitempty" yaml:"status,omitempty"`
	Amount     uint64         `json:"amount,omitempty" yaml:"amount,omitempty"`
	Settlement *Settlement    `json:"settlement,omitempty" yaml:"settlement,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// RejectEvent describes an instruction that failed and left no trace in the store.
type RejectEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Op        Op        `json:"op"`
	Signer    Identity  `json:"signer"`
	Err       error     `json:"-"`
}

// LifecycleHooks defines callbacks for ledger observability.
// OnCommit runs after the transaction is durable, never inside it.
type LifecycleHooks struct {
	OnCommit func(context.Context, *Event)
	OnReject func(context.Context, *RejectEvent)
}
