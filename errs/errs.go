// Package errs defines the aggregator's error taxonomy (spec.md §7).
// These are the only error *kinds* that escape a reducer or driver as
// an aggregate, hard-failure verdict; individual validator-level
// failures are absorbed into reducer state and never surface on their
// own (except via the single-error shortcut in ProcessTransaction).
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/ids"
)

// QuorumNotReached is returned when bad_stake > V while processing a
// transaction: no quorum of valid signatures can be formed from here.
type QuorumNotReached struct {
	Errors []error
}

func (e *QuorumNotReached) Error() string {
	return fmt.Sprintf("quorum not reached: %s", joinErrors(e.Errors))
}

// QuorumFailedToExecuteCertificate is returned when bad_stake > V
// while processing a certificate: no single effects digest can reach
// quorum.
type QuorumFailedToExecuteCertificate struct {
	Errors []error
}

func (e *QuorumFailedToExecuteCertificate) Error() string {
	return fmt.Sprintf("quorum failed to execute certificate: %s", joinErrors(e.Errors))
}

// AuthorityInformationUnavailable is returned when a source authority
// lacks history it was believed to have (no effects or certificate for
// a digest), or when a certificate still cannot be applied at the
// destination after its one retry.
type AuthorityInformationUnavailable struct {
	TxDigest ids.ID
}

func (e *AuthorityInformationUnavailable) Error() string {
	return fmt.Sprintf("authority information unavailable for tx %s", e.TxDigest)
}

// AuthorityUpdateFailure is returned when every sampled source
// authority failed to bring a destination authority up to date.
type AuthorityUpdateFailure struct {
	Destination ids.NodeID
	TxDigest    ids.ID
}

func (e *AuthorityUpdateFailure) Error() string {
	return fmt.Sprintf("failed to update authority %s for tx %s", e.Destination, e.TxDigest)
}

// TooManyIncorrectAuthorities is returned when a fan-out (object/
// account queries, execute-to-true-effects, or the hedged path)
// cannot reach its required threshold because too many authorities
// returned errors or unusable responses.
type TooManyIncorrectAuthorities struct {
	Errors map[ids.NodeID]error
}

func (e *TooManyIncorrectAuthorities) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for name, err := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %v", name, err))
	}
	return fmt.Sprintf("too many incorrect authorities: %s", strings.Join(parts, "; "))
}

// PairwiseSyncFailed is reported to both client facades when a
// source->destination sync attempt fails; it does not terminate the
// outer call, only the attempt against that particular source.
type PairwiseSyncFailed struct {
	Source, Destination ids.NodeID
	TxDigest            ids.ID
	Inner               error
}

func (e *PairwiseSyncFailed) Error() string {
	return fmt.Sprintf("sync %s -> %s failed for tx %s: %v", e.Source, e.Destination, e.TxDigest, e.Inner)
}

func (e *PairwiseSyncFailed) Unwrap() error { return e.Inner }

// ByzantineAuthoritySuspicion is raised by SafeClient when a validator
// violates a protocol invariant: a bad signature, a digest mismatch,
// a claim that doesn't match what was delivered, or a wrong epoch.
type ByzantineAuthoritySuspicion struct {
	Authority ids.NodeID
	Reason    string
}

func (e *ByzantineAuthoritySuspicion) Error() string {
	return fmt.Sprintf("byzantine suspicion: %s: %s", e.Authority, e.Reason)
}

// TimeoutError is surfaced by the hedged path only when the outer
// timeout fires with no per-authority error recorded alongside it.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "timeout" }

// ObjectLockedError models the validator-side "object lock is out of
// date" condition (ObjectErrors in the spec). ProcessCertificate's
// recovery ladder special-cases this error kind; everything else is
// opaque and bubbles straight up.
type ObjectLockedError struct {
	ObjectID ids.ID
}

func (e *ObjectLockedError) Error() string {
	return fmt.Sprintf("object %s lock is out of date", e.ObjectID)
}

// IsObjectLocked reports whether err is (or wraps) an ObjectLockedError.
func IsObjectLocked(err error) bool {
	var target *ObjectLockedError
	return errors.As(err, &target)
}

// ObjectFetchFailed is returned by FetchObjectsFromAuthorities when no
// authority could produce the object at the ref's pinned digest.
type ObjectFetchFailed struct {
	ObjectID ids.ID
}

func (e *ObjectFetchFailed) Error() string {
	return fmt.Sprintf("no authority returned the correct object for %s", e.ObjectID)
}

func joinErrors(errors []error) string {
	parts := make([]string, len(errors))
	for i, e := range errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// UniqueErrors de-duplicates errors by their string representation,
// preserving first-seen order. Used to build the "unique_errors" set
// both QuorumNotReached and QuorumFailedToExecuteCertificate report.
func UniqueErrors(errors []error) []error {
	seen := make(map[string]struct{}, len(errors))
	out := make([]error, 0, len(errors))
	for _, e := range errors {
		key := e.Error()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
