package domain

// Field limits, in bytes.
const (
	MaxNameLen        = 32
	MaxContactInfoLen = 64
	MaxDescriptionLen = 128
	MaxProduceTypeLen = 32
	MaxQrCodeURILen   = 128
)

// Quality scores run from 0 to 100. A verified score below the threshold
// moves the batch into an automatic dispute.
const (
	MaxQuality       = 100
	QualityThreshold = 50
)

// Sentinels for produce fields that have not been recorded yet.
const (
	UnsetTemperature int16 = -999
	UnsetHumidity    uint8 = 255
	UnsetQuality     uint8 = 255
)

// Physical bounds for transport readings.
const (
	MinTemperature int16 = -273
	MaxHumidity    uint8 = 100
)

// DefaultCurrency is the settlement currency bound to the vault when none is configured.
const DefaultCurrency = "wsol"
