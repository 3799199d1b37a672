// Package resolver finds the single best record for a raw query.
//
// Matching runs in tiers and stops at the first tier that yields a record:
//
//	exact    phone/account equal to the query, or listed in phones/accounts
//	partial  phone or account contains the query, or name contains it (case-insensitive, NFC)
//	pattern  query is 9-14 digits: account equal, or any account contains it
//
// Within a tier the first record in storage order wins.
package resolver

import (
	"regexp"
	"slices"
	"strings"

	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
	"golang.org/x/text/unicode/norm"
)

// Tier identifies which matching stage produced a result.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierPartial
	TierPattern
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPartial:
		return "partial"
	case TierPattern:
		return "pattern"
	default:
		return "none"
	}
}

var accountPattern = regexp.MustCompile(`^\d{9,14}$`)

// Resolver looks up records in a store.
type Resolver struct {
	store *records.Store
}

// New returns a resolver over store.
func New(store *records.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the best match for query, or false.
func (r *Resolver) Resolve(query string) (ports.TrustRecord, bool) {
	rec, tier := r.ResolveWithTier(query)
	return rec, tier != TierNone
}

// ResolveWithTier is Resolve, also reporting the matching tier.
func (r *Resolver) ResolveWithTier(query string) (ports.TrustRecord, Tier) {
	q := norm.NFC.String(strings.TrimSpace(query))
	if q == "" {
		return ports.TrustRecord{}, TierNone
	}

	if rec, ok := r.first(func(rec *ports.TrustRecord) bool { return exactMatch(rec, q) }); ok {
		return rec, TierExact
	}

	lq := scoring.Fold(q)
	if rec, ok := r.first(func(rec *ports.TrustRecord) bool { return partialMatch(rec, q, lq) }); ok {
		return rec, TierPartial
	}

	if accountPattern.MatchString(q) {
		if rec, ok := r.first(func(rec *ports.TrustRecord) bool { return patternMatch(rec, q) }); ok {
			return rec, TierPattern
		}
	}
	return ports.TrustRecord{}, TierNone
}

func (r *Resolver) first(match func(*ports.TrustRecord) bool) (ports.TrustRecord, bool) {
	var found ports.TrustRecord
	ok := false
	r.store.Each(func(rec *ports.TrustRecord) bool {
		if match(rec) {
			found, ok = rec.Clone(), true
			return false
		}
		return true
	})
	return found, ok
}

func exactMatch(rec *ports.TrustRecord, q string) bool {
	return rec.Phone == q || rec.Account == q ||
		slices.Contains(rec.Phones, q) || slices.Contains(rec.Accounts, q)
}

// partialMatch: phone and account are compared as-is, name case-folded.
func partialMatch(rec *ports.TrustRecord, q, lq string) bool {
	if rec.Phone != "" && strings.Contains(rec.Phone, q) {
		return true
	}
	if rec.Account != "" && strings.Contains(rec.Account, q) {
		return true
	}
	return rec.Name != "" && strings.Contains(scoring.Fold(rec.Name), lq)
}

func patternMatch(rec *ports.TrustRecord, q string) bool {
	if rec.Account == q {
		return true
	}
	for _, a := range rec.Accounts {
		if strings.Contains(a, q) {
			return true
		}
	}
	return false
}
