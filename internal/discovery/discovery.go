// Package discovery finds the previously used addresses of an HD wallet
// whose addresses are spread over a fixed number of groups.
//
// Each group is scanned independently in rounds of GapLimit addresses. A
// round with no active address ends that group's scan. Results are always
// assembled in (group, index) order so the outcome does not depend on
// scheduling or on how rounds are split into oracle requests.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/shardwallet/shardwallet/internal/address"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// Default scanning parameters.
const (
	// DefaultGapLimit is the number of group addresses judged per round.
	// A round without any active address ends the group scan.
	DefaultGapLimit = 5

	// DefaultMaxConcurrent bounds the number of groups scanned at once.
	DefaultMaxConcurrent = address.TotalGroups

	// DefaultMemoSize is the number of derived addresses kept for reuse
	// across group scans.
	DefaultMemoSize = 4096

	// DefaultTimeout is the default context timeout for a discovery run.
	DefaultTimeout = 5 * time.Minute

	// maxGroups is the largest group count a Group can address.
	maxGroups = 256
)

// Mode selects how group scans are scheduled.
type Mode string

// Scheduling modes.
const (
	// ModeParallel scans groups concurrently, up to MaxConcurrent at a time.
	ModeParallel Mode = "parallel"

	// ModeSerialized scans one group at a time and funnels every derivation
	// through a single lock. Used with single-transport hardware signers.
	ModeSerialized Mode = "serialized"
)

// ParseMode parses a scheduling mode name. An empty string selects ModeParallel.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeParallel:
		return ModeParallel, nil
	case ModeSerialized:
		return ModeSerialized, nil
	default:
		return "", walleterr.WithDetails(ErrInvalidMode, map[string]string{"mode": s})
	}
}

// Errors specific to discovery operations.
var (
	// ErrUnsupportedKeyType indicates the deriver cannot produce the requested key type.
	ErrUnsupportedKeyType = &walleterr.WalletError{
		Code:     "UNSUPPORTED_KEY_TYPE",
		Message:  "unsupported key type",
		ExitCode: walleterr.ExitInput,
	}

	// ErrDerivationFailed indicates the deriver failed; the whole discovery is aborted.
	ErrDerivationFailed = &walleterr.WalletError{
		Code:       "DERIVATION_FAILED",
		Message:    "address derivation failed",
		Suggestion: "check the signer connection and run discovery again",
		ExitCode:   walleterr.ExitDevice,
	}

	// ErrOracleFailed indicates the activity oracle failed or answered malformed data.
	ErrOracleFailed = &walleterr.WalletError{
		Code:       "ORACLE_FAILED",
		Message:    "address activity check failed",
		Suggestion: "check the explorer endpoint and run discovery again",
		ExitCode:   walleterr.ExitNetwork,
	}

	// ErrDiscoveryCanceled indicates the discovery was canceled by context.
	ErrDiscoveryCanceled = &walleterr.WalletError{
		Code:     "DISCOVERY_CANCELED",
		Message:  "discovery was canceled",
		ExitCode: walleterr.ExitCanceled,
	}

	// ErrIndexSpaceExhausted indicates no usable index is left.
	ErrIndexSpaceExhausted = &walleterr.WalletError{
		Code:     "INDEX_SPACE_EXHAUSTED",
		Message:  "no free address index left",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidGapLimit indicates the gap limit is invalid.
	ErrInvalidGapLimit = &walleterr.WalletError{
		Code:     "INVALID_GAP_LIMIT",
		Message:  "gap limit must be positive",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidBatchSize indicates the oracle batch size is invalid.
	ErrInvalidBatchSize = &walleterr.WalletError{
		Code:     "INVALID_BATCH_SIZE",
		Message:  "oracle batch size must not be negative",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidMaxConcurrent indicates max concurrent is invalid.
	ErrInvalidMaxConcurrent = &walleterr.WalletError{
		Code:     "INVALID_MAX_CONCURRENT",
		Message:  "max concurrent must be positive",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidGroupCount indicates the group count is out of range.
	ErrInvalidGroupCount = &walleterr.WalletError{
		Code:     "INVALID_GROUP_COUNT",
		Message:  "group count must be between 0 and 256",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidGroup indicates a group outside the network's range.
	ErrInvalidGroup = &walleterr.WalletError{
		Code:     "INVALID_GROUP",
		Message:  "group is out of range",
		ExitCode: walleterr.ExitInput,
	}

	// ErrInvalidMode indicates an unknown scheduling mode.
	ErrInvalidMode = &walleterr.WalletError{
		Code:     "INVALID_MODE",
		Message:  "mode must be parallel or serialized",
		ExitCode: walleterr.ExitInput,
	}
)

// Deriver produces addresses for HD indices.
type Deriver interface {
	// DeriveAddress derives the address at index. When targetGroup is not
	// nil the deriver may return the first address at or after index that
	// lands in that group.
	DeriveAddress(ctx context.Context, index uint32, keyType address.KeyType, targetGroup *address.Group) (*address.DerivedAddress, error)

	// SupportsKeyType reports whether keyType can be derived.
	SupportsKeyType(keyType address.KeyType) bool
}

// Oracle reports whether addresses have ever appeared on chain.
type Oracle interface {
	// CheckActive returns one boolean per hash, in order.
	CheckActive(ctx context.Context, hashes []string) ([]bool, error)
}

// Logger receives discovery diagnostics.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nullLogger struct{}

func (nullLogger) Debug(string, ...any) {}
func (nullLogger) Error(string, ...any) {}

// Progress phases.
const (
	PhaseRound = "round"
	PhaseFound = "found"
	PhaseDone  = "done"
)

// ProgressUpdate provides feedback during scanning.
type ProgressUpdate struct {
	// Phase is one of PhaseRound, PhaseFound, PhaseDone.
	Phase string

	// Group is the group being scanned.
	Group address.Group

	// Round is the 1-based round number within the group.
	Round int

	// AddressesScanned is the number of group addresses checked so far.
	AddressesScanned int

	// ActiveFound is the number of active addresses found so far in the group.
	ActiveFound int

	// Cursor is the next index the group scan will consider.
	Cursor uint32

	// Message provides additional context.
	Message string
}

// ProgressCallback is called during scanning to report progress.
// Calls are serialized by AccountDiscovery.
type ProgressCallback func(ProgressUpdate)

// Options configures discovery.
type Options struct {
	// GapLimit is the number of group addresses judged per round.
	// Default: DefaultGapLimit (5).
	GapLimit int

	// OracleBatchSize caps the number of hashes per oracle request.
	// Zero means one request per round. It never changes the result.
	OracleBatchSize int

	// Groups is the number of address groups on the network.
	// Default: address.TotalGroups.
	Groups int

	// Mode selects parallel or serialized group scanning.
	Mode Mode

	// MaxConcurrent bounds parallel group scans.
	// Default: DefaultMaxConcurrent.
	MaxConcurrent int

	// MaxIndex is the highest index considered. Zero means address.MaxIndex.
	MaxIndex uint32

	// MemoSize is the capacity of the shared derivation memo.
	// Zero disables the memo.
	MemoSize int

	// ProgressCallback receives updates during scanning.
	ProgressCallback ProgressCallback

	// Logger receives debug and error diagnostics.
	Logger Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		GapLimit:      DefaultGapLimit,
		Groups:        address.TotalGroups,
		Mode:          ModeParallel,
		MaxConcurrent: DefaultMaxConcurrent,
		MemoSize:      DefaultMemoSize,
	}
}

// Validate checks that the options are valid.
func (o *Options) Validate() error {
	if o.GapLimit <= 0 {
		return walleterr.WithDetails(ErrInvalidGapLimit, map[string]string{"value": fmt.Sprintf("%d", o.GapLimit)})
	}
	if o.OracleBatchSize < 0 {
		return walleterr.WithDetails(ErrInvalidBatchSize, map[string]string{"value": fmt.Sprintf("%d", o.OracleBatchSize)})
	}
	if o.Groups < 0 || o.Groups > maxGroups {
		return walleterr.WithDetails(ErrInvalidGroupCount, map[string]string{"value": fmt.Sprintf("%d", o.Groups)})
	}
	if o.Mode != ModeSerialized && o.MaxConcurrent <= 0 {
		return walleterr.WithDetails(ErrInvalidMaxConcurrent, map[string]string{"value": fmt.Sprintf("%d", o.MaxConcurrent)})
	}
	if o.Mode != "" && o.Mode != ModeParallel && o.Mode != ModeSerialized {
		return walleterr.WithDetails(ErrInvalidMode, map[string]string{"mode": string(o.Mode)})
	}
	return nil
}

// batchSize returns the effective oracle request size.
func (o *Options) batchSize() int {
	if o.OracleBatchSize == 0 || o.OracleBatchSize > o.GapLimit {
		return o.GapLimit
	}
	return o.OracleBatchSize
}

// maxIndex returns the effective highest index.
func (o *Options) maxIndex() uint32 {
	if o.MaxIndex == 0 {
		return address.MaxIndex
	}
	return o.MaxIndex
}

func (o *Options) logger() Logger {
	if o.Logger == nil {
		return nullLogger{}
	}
	return o.Logger
}

// Result is the outcome of a successful discovery.
type Result struct {
	// Addresses are the active addresses ordered by group, then index.
	Addresses []address.DerivedAddress `json:"addresses"`

	// KeyType is the key type that was scanned.
	KeyType address.KeyType `json:"key_type"`

	// GroupsScanned is the number of groups scanned.
	GroupsScanned int `json:"groups_scanned"`

	// AddressesScanned is the number of addresses sent to the oracle.
	AddressesScanned int `json:"addresses_scanned"`

	// OracleCalls is the number of oracle requests made.
	OracleCalls int `json:"oracle_calls"`

	// Rounds is the total number of rounds across groups.
	Rounds int `json:"rounds"`

	// Duration is how long the discovery took.
	Duration time.Duration `json:"duration_ms"`
}

// HasActive reports whether any active address was found.
func (r *Result) HasActive() bool {
	return len(r.Addresses) > 0
}

// ByGroup returns the discovered addresses of one group.
func (r *Result) ByGroup(group address.Group) []address.DerivedAddress {
	var out []address.DerivedAddress
	for _, a := range r.Addresses {
		if a.Group == group {
			out = append(out, a)
		}
	}
	return out
}

// Indexes returns the indices of the discovered addresses. Passing them
// as the skip set of a later run avoids re-testing known addresses.
func (r *Result) Indexes() []uint32 {
	out := make([]uint32, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		out = append(out, a.Index)
	}
	return out
}
