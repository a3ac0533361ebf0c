package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/shardwallet/shardwallet/internal/address"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// ScanState is the state of a GroupScanner.
type ScanState int

// Scanner states.
const (
	// StateScanning is the first round of a group scan.
	StateScanning ScanState = iota
	// StateExtending means the previous round found activity and another round runs.
	StateExtending
	// StateDone means the scan has terminated.
	StateDone
)

func (s ScanState) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateExtending:
		return "extending"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ScanStats counts the work done by one group scan.
type ScanStats struct {
	Rounds           int
	AddressesScanned int
	IndexesDerived   int
	OracleCalls      int
}

// GroupScanner discovers the active addresses of exactly one group.
// It is not safe for concurrent use; AccountDiscovery runs one per group.
type GroupScanner struct {
	group       address.Group
	keyType     address.KeyType
	deriver     Deriver
	oracle      Oracle
	skip        *SkipSet
	gapLimit    int
	oracleBatch int
	maxIndex    uint32
	logger      Logger
	progress    ProgressCallback

	state     ScanState
	cursor    uint32
	exhausted bool
	stats     ScanStats
}

// NewGroupScanner creates a scanner for one group. opts must be valid.
func NewGroupScanner(group address.Group, keyType address.KeyType, deriver Deriver, oracle Oracle, skip *SkipSet, opts *Options) *GroupScanner {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &GroupScanner{
		group:       group,
		keyType:     keyType,
		deriver:     deriver,
		oracle:      oracle,
		skip:        skip,
		gapLimit:    opts.GapLimit,
		oracleBatch: opts.batchSize(),
		maxIndex:    opts.maxIndex(),
		logger:      opts.logger(),
		progress:    opts.ProgressCallback,
		state:       StateScanning,
	}
}

// State returns the scanner state.
func (s *GroupScanner) State() ScanState {
	return s.state
}

// Cursor returns the next index the scanner will consider.
func (s *GroupScanner) Cursor() uint32 {
	return s.cursor
}

// Stats returns the work counters of the scan so far.
func (s *GroupScanner) Stats() ScanStats {
	return s.stats
}

// Scan runs rounds until one finds no active address, and returns the
// active addresses in ascending index order.
func (s *GroupScanner) Scan(ctx context.Context) ([]address.DerivedAddress, error) {
	var found []address.DerivedAddress

	for s.state != StateDone {
		round, err := s.nextRound(ctx)
		if err != nil {
			s.state = StateDone
			return nil, err
		}
		if len(round) == 0 {
			s.finish(len(found), "index space exhausted")
			break
		}

		s.stats.Rounds++
		s.logger.Debug("group %d round %d: checking %d addresses (%s..%s)",
			s.group, s.stats.Rounds, len(round), round[0].Hash, round[len(round)-1].Hash)

		active, err := s.checkRound(ctx, round)
		if err != nil {
			s.state = StateDone
			s.logger.Error("group %d round %d: %v", s.group, s.stats.Rounds, err)
			return nil, err
		}
		s.stats.AddressesScanned += len(round)

		hits := 0
		for i, ok := range active {
			if !ok {
				continue
			}
			found = append(found, round[i])
			hits++
			s.report(ProgressUpdate{
				Phase:       PhaseFound,
				Message:     fmt.Sprintf("active address %s at index %d", round[i].Hash, round[i].Index),
				ActiveFound: len(found),
			})
		}

		s.report(ProgressUpdate{
			Phase:       PhaseRound,
			Message:     fmt.Sprintf("round %d: %d of %d active", s.stats.Rounds, hits, len(round)),
			ActiveFound: len(found),
		})

		switch {
		case hits == 0:
			s.finish(len(found), "gap limit reached")
		case s.exhausted:
			s.finish(len(found), "index space exhausted")
		default:
			s.state = StateExtending
		}
	}

	return found, nil
}

// nextRound derives up to gapLimit not-skipped addresses of this group
// starting at the cursor. Addresses of other groups consume cursor
// positions and are dropped.
func (s *GroupScanner) nextRound(ctx context.Context) ([]address.DerivedAddress, error) {
	round := make([]address.DerivedAddress, 0, s.gapLimit)

	for len(round) < s.gapLimit && !s.exhausted {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err)
		}

		index, ok := s.skip.NextFree(s.cursor, s.maxIndex)
		if !ok {
			s.exhausted = true
			break
		}

		addr, err := s.deriver.DeriveAddress(ctx, index, s.keyType, nil)
		if err != nil {
			return nil, classify(ctx, ErrDerivationFailed, err, map[string]string{
				"group": fmt.Sprintf("%d", s.group),
				"index": fmt.Sprintf("%d", index),
			})
		}
		s.stats.IndexesDerived++

		if index == s.maxIndex {
			s.exhausted = true
		} else {
			s.cursor = index + 1
		}

		if addr.Group == s.group {
			round = append(round, *addr)
		}
	}

	return round, nil
}

// checkRound asks the oracle about every address of the round, split into
// requests of at most oracleBatch hashes.
func (s *GroupScanner) checkRound(ctx context.Context, round []address.DerivedAddress) ([]bool, error) {
	active := make([]bool, 0, len(round))

	for start := 0; start < len(round); start += s.oracleBatch {
		end := min(start+s.oracleBatch, len(round))

		hashes := make([]string, 0, end-start)
		for _, a := range round[start:end] {
			hashes = append(hashes, a.Hash)
		}

		s.stats.OracleCalls++
		resp, err := s.oracle.CheckActive(ctx, hashes)
		if err != nil {
			return nil, classify(ctx, ErrOracleFailed, err, map[string]string{
				"group": fmt.Sprintf("%d", s.group),
				"round": fmt.Sprintf("%d", s.stats.Rounds),
			})
		}
		if len(resp) != len(hashes) {
			return nil, walleterr.WithDetails(ErrOracleFailed, map[string]string{
				"group":  fmt.Sprintf("%d", s.group),
				"reason": fmt.Sprintf("oracle returned %d results for %d addresses", len(resp), len(hashes)),
			})
		}
		active = append(active, resp...)
	}

	return active, nil
}

func (s *GroupScanner) finish(found int, reason string) {
	s.state = StateDone
	s.logger.Debug("group %d done after %d rounds: %d active (%s)", s.group, s.stats.Rounds, found, reason)
	s.report(ProgressUpdate{
		Phase:       PhaseDone,
		Message:     reason,
		ActiveFound: found,
	})
}

// report fills in the scanner position and calls the progress callback.
func (s *GroupScanner) report(update ProgressUpdate) {
	if s.progress == nil {
		return
	}
	update.Group = s.group
	update.Round = s.stats.Rounds
	update.AddressesScanned = s.stats.AddressesScanned
	update.Cursor = s.cursor
	s.progress(update)
}

// classify wraps err in sentinel, or in ErrDiscoveryCanceled when the
// failure comes from context cancellation.
func classify(ctx context.Context, sentinel *walleterr.WalletError, err error, details map[string]string) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return canceled(err)
	}
	return &walleterr.WalletError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    details,
		Suggestion: sentinel.Suggestion,
		Cause:      err,
		ExitCode:   sentinel.ExitCode,
	}
}

func canceled(err error) error {
	return walleterr.WithCause(ErrDiscoveryCanceled, err)
}
