package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment lifecycle statuses. Transitions are owned by the gateway:
// pending -> processing -> confirmed | failed (custodial), and
// pending_signature -> processing -> confirmed | failed (user wallet),
// with processing -> pending_signature on blockhash expiry.
const (
	StatusPending          = "pending"
	StatusPendingSignature = "pending_signature"
	StatusProcessing       = "processing"
	StatusConfirmed        = "confirmed"
	StatusFailed           = "failed"
)

// Payment execution modes.
const (
	// ModeCustodial means the gateway wallet signs and executes the transfer.
	ModeCustodial = "custodial"
	// ModeUserWallet means the user's own wallet signs the transaction;
	// the gateway only prepares and submits it.
	ModeUserWallet = "user_wallet"
)

// DirectionOutgoing is the only direction this gateway creates.
const DirectionOutgoing = "outgoing"

// JSONMap stores opaque metadata as a JSON column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
	return json.Unmarshal(data, m)
}

// Payment is the durable record of a single payment attempt.
// Created at challenge-acceptance time and mutated only through gateway
// state transitions; never deleted by the gateway.
type Payment struct {
	// PaymentID is generated by the repository on creation.
	PaymentID string `json:"payment_id" gorm:"column:payment_id;type:char(36);primaryKey"`
	// UserID is the owner of the payment. Submission is only accepted from this user.
	UserID string `json:"user_id" gorm:"column:user_id;index;not null"`
	// AgentID is the agent that triggered the payment, if any.
	AgentID string `json:"agent_id,omitempty" gorm:"column:agent_id;index"`
	// ThreadID is the conversation thread the payment belongs to, if any.
	ThreadID string `json:"thread_id,omitempty" gorm:"column:thread_id"`
	// Direction is always "outgoing" for gateway-initiated payments.
	Direction string `json:"direction" gorm:"column:direction;not null"`

	ServiceURL         string `json:"service_url" gorm:"column:service_url;not null"`
	ServiceName        string `json:"service_name,omitempty" gorm:"column:service_name"`
	ServiceDescription string `json:"service_description,omitempty" gorm:"column:service_description"`

	// Amount is the payment amount in token units. Stored as numeric, never float.
	Amount decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(20,6);not null"`
	Token  string          `json:"token" gorm:"column:token;not null"`

	FromAddress string `json:"from_address" gorm:"column:from_address"`
	ToAddress   string `json:"to_address" gorm:"column:to_address"`

	Blockchain string `json:"blockchain" gorm:"column:blockchain;not null;default:solana"`

	Status      string `json:"status" gorm:"column:status;index;not null"`
	PaymentMode string `json:"payment_mode" gorm:"column:payment_mode;not null"`

	// UserWalletAddress is set only in user-wallet mode.
	UserWalletAddress string `json:"user_wallet_address,omitempty" gorm:"column:user_wallet_address"`
	TxSignature       string `json:"tx_signature,omitempty" gorm:"column:tx_signature;index"`
	// UnsignedTransaction holds the base64 encoded unsigned transaction
	// between prepare and submit in user-wallet mode.
	UnsignedTransaction string `json:"unsigned_transaction,omitempty" gorm:"column:unsigned_transaction;type:text"`
	// ExpiresAt is the signing window deadline, user-wallet mode only.
	ExpiresAt    *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	ErrorMessage string     `json:"error_message,omitempty" gorm:"column:error_message;type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
	// VerifiedAt is stamped when the payment enters confirmed.
	VerifiedAt *time.Time `json:"verified_at,omitempty" gorm:"column:verified_at"`

	Metadata JSONMap `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
}

// TableName maps the entity to the x402_payments table.
func (Payment) TableName() string {
	return "x402_payments"
}
