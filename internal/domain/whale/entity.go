package whale

import (
	"time"

	"github.com/shopspring/decimal"
)

// Class buckets an address by its native token balance.
type Class string

const (
	ClassShrimp      Class = "shrimp"       // < 10 tokens
	ClassSmallWhale  Class = "small_whale"  // 10-100 tokens
	ClassMediumWhale Class = "medium_whale" // 100-1,000 tokens
	ClassLargeWhale  Class = "large_whale"  // 1,000-10,000 tokens
	ClassMegaWhale   Class = "mega_whale"   // > 10,000 tokens
)

// String returns the string representation of the class
func (c Class) String() string {
	return string(c)
}

// severity orders classes from shrimp (0) to mega whale (4).
func (c Class) severity() int {
	switch c {
	case ClassMegaWhale:
		return 4
	case ClassLargeWhale:
		return 3
	case ClassMediumWhale:
		return 2
	case ClassSmallWhale:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c is of equal or higher severity than other.
func (c Class) AtLeast(other Class) bool {
	return c.severity() >= other.severity()
}

// AccountSnapshot is the point-in-time balance of an address on one chain.
// Produced fresh per query, never cached.
type AccountSnapshot struct {
	Address string
	ChainID string
	Balance decimal.Decimal // native units
	Wei     decimal.Decimal // smallest unit, integer valued
}

// Transaction is a normalized native-currency transaction.
type Transaction struct {
	Hash        string
	From        string
	To          string
	Value       decimal.Decimal // native units
	Timestamp   time.Time
	BlockNumber int64
	Success     bool
}

// TokenTransfer is a normalized ERC20/BEP20 transfer event.
// Amount is already adjusted by the token's declared decimals.
type TokenTransfer struct {
	Hash            string
	From            string
	To              string
	ContractAddress string
	TokenSymbol     string
	Amount          decimal.Decimal
	Timestamp       time.Time
	BlockNumber     int64
}

// GasOracle holds the explorer gas tracker tiers in gwei.
type GasOracle struct {
	ChainID  string
	Safe     decimal.Decimal
	Standard decimal.Decimal
	Fast     decimal.Decimal
}

// NativePrice is the fiat-quoted price of a chain's native token.
type NativePrice struct {
	ChainID string
	USD     decimal.Decimal
	BTC     decimal.Decimal
}

// Direction of a movement relative to the address under analysis.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MovementKind distinguishes native transactions from token transfers.
type MovementKind string

const (
	MovementNative MovementKind = "native"
	MovementToken  MovementKind = "token"
)

// MovementEvent is a transaction or transfer flagged during movement detection.
type MovementEvent struct {
	ID               string
	Kind             MovementKind
	TxHash           string
	Address          string // the address under analysis
	Counterparty     string
	Direction        Direction
	Magnitude        decimal.Decimal // native units or adjusted token amount
	TokenSymbol      string          // empty for native movements
	Timestamp        time.Time
	BlockNumber      int64
	ExceedsThreshold bool
	ExchangeLabel    string // set by exchange tracking, e.g. "Binance"
	MovementType     string // "deposit" / "withdrawal" for exchange flows
}

// Report is the derived whale analysis for one address. Ephemeral,
// recomputed on every request.
type Report struct {
	ID          string
	Address     string
	ChainID     string
	Class       Class
	Balance     decimal.Decimal
	GeneratedAt time.Time

	TotalTransactions int
	LargeTransactions int
	AvgTransaction    decimal.Decimal
	MaxTransaction    decimal.Decimal
	NetFlow           decimal.Decimal // inbound minus outbound over the window

	FirstSeen    time.Time
	LastActivity time.Time

	ActivityScore  float64 // 0-100, share of recent transactions
	RiskScore      float64 // 0-100
	TokenDiversity int     // distinct token contracts touched

	Label string // known-whale label, if any
}

// Candidate is an address surfaced by counterparty discovery.
type Candidate struct {
	Address     string
	Via         string          // the address whose history surfaced it
	MaxObserved decimal.Decimal // largest transaction seen involving it
	Hops        int             // graph distance from the seed
}
