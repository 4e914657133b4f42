package domain

// Instruction is one signed request submitted by an external actor.
// Args are positional and follow the parameter list of Op.
type Instruction struct {
	Op     Op       `json:"op" yaml:"op" mapstructure:"op"`
	Signer Identity `json:"signer" yaml:"signer" mapstructure:"signer"`
	Args   []any    `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Receipt acknowledges a committed instruction.
type Receipt struct {
	Op         Op          `json:"op" yaml:"op"`
	Key        string      `json:"key" yaml:"key"`
	EventID    string      `json:"event_id" yaml:"event_id"`
	Settlement *Settlement `json:"settlement,omitempty" yaml:"settlement,omitempty"`
}
