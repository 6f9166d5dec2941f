package importers

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// LookupKey selects how a reference value is matched against its target.
type LookupKey string

const (
	// LookupID matches the surrogate id.
	LookupID LookupKey = "id"
	// LookupNatural matches the natural key (username, slug).
	LookupNatural LookupKey = "natural"
	// LookupAuto tries the id for numeric values, then the natural key.
	LookupAuto LookupKey = "auto"
)

func ParseLookupKey(s string) (LookupKey, error) {
	switch key := LookupKey(strings.ToLower(strings.TrimSpace(s))); key {
	case LookupID, LookupNatural, LookupAuto:
		return key, nil
	default:
		return "", fmt.Errorf("unknown lookup key %q", s)
	}
}

// RefSpec declares a column referencing another entity type.
type RefSpec struct {
	Field    string
	Aliases  []string
	Target   Entity
	Key      LookupKey
	Optional bool
}

func (r RefSpec) names() []string {
	return append([]string{r.Field}, r.Aliases...)
}

// UnresolvedRef is one reference whose target does not exist, or whose
// value matches more than one target record.
type UnresolvedRef struct {
	Field  string
	Value  string
	Target Entity
	// Candidates holds the distinct matches of an ambiguous value.
	Candidates []uint
}

func (u UnresolvedRef) String() string {
	switch {
	case u.Value == "":
		return fmt.Sprintf("%s: missing reference to %s", u.Field, u.Target)
	case len(u.Candidates) > 1:
		ids := make([]string, len(u.Candidates))
		for i, id := range u.Candidates {
			ids[i] = strconv.FormatUint(uint64(id), 10)
		}
		return fmt.Sprintf("%s=%q: ambiguous %s, matches ids %s", u.Field, u.Value, u.Target, strings.Join(ids, ", "))
	default:
		return fmt.Sprintf("%s=%q: no such %s", u.Field, u.Value, u.Target)
	}
}

// UnresolvedError lists the references of a row that could not be resolved.
type UnresolvedError struct {
	Refs []UnresolvedRef
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Refs))
	for i, ref := range e.Refs {
		parts[i] = ref.String()
	}
	return "unresolved reference: " + strings.Join(parts, "; ")
}

// Resolution is the outcome of resolving the references of one row.
type Resolution struct {
	// IDs maps each reference field to its target id; nil when absent.
	IDs map[string]*uint
	// Dangling lists optional references that were given but did not
	// resolve. The row is stored without them and they are reported.
	Dangling []UnresolvedRef
}

// Resolver maps reference values to surrogate ids. It only reads from the
// store and never creates target records.
type Resolver struct {
	store Store
	// cache holds successful lookups only; the store is append-only during a run.
	cache map[string]uint
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, cache: make(map[string]uint)}
}

// Resolve returns the resolved id per reference field. Any unresolved
// required reference fails the whole row with an *UnresolvedError; other
// errors come from the store.
func (r *Resolver) Resolve(ctx context.Context, row Row, refs []RefSpec) (Resolution, error) {
	res := Resolution{IDs: make(map[string]*uint, len(refs))}
	var missing []UnresolvedRef

	for _, ref := range refs {
		raw, _ := row.Cell(ref.names()...)
		res.IDs[ref.Field] = nil
		if raw == "" {
			if !ref.Optional {
				missing = append(missing, UnresolvedRef{Field: ref.Field, Target: ref.Target})
			}
			continue
		}

		hits, err := r.lookup(ctx, ref, raw)
		if err != nil {
			return Resolution{}, err
		}
		if len(hits) == 1 {
			id := hits[0]
			res.IDs[ref.Field] = &id
			continue
		}

		unresolved := UnresolvedRef{Field: ref.Field, Value: raw, Target: ref.Target}
		if len(hits) > 1 {
			unresolved.Candidates = hits
		}
		if ref.Optional {
			res.Dangling = append(res.Dangling, unresolved)
		} else {
			missing = append(missing, unresolved)
		}
	}

	if len(missing) > 0 {
		return Resolution{}, &UnresolvedError{Refs: missing}
	}
	return res, nil
}

// lookup returns the distinct ids matching raw. Under LookupAuto a numeric
// value is tried as both id and natural key; two different matches are
// returned as is so the caller can report the ambiguity.
func (r *Resolver) lookup(ctx context.Context, ref RefSpec, raw string) ([]uint, error) {
	natural, hasNatural := NaturalKey(ref.Target)
	id, numErr := strconv.ParseUint(raw, 10, 64)

	var attempts []lookupAttempt
	switch ref.Key {
	case LookupID:
		if numErr == nil {
			attempts = append(attempts, lookupAttempt{"id", uint(id)})
		}
	case LookupNatural:
		if hasNatural {
			attempts = append(attempts, lookupAttempt{natural, raw})
		}
	default:
		if numErr == nil {
			attempts = append(attempts, lookupAttempt{"id", uint(id)})
		}
		if hasNatural {
			attempts = append(attempts, lookupAttempt{natural, raw})
		}
	}

	var hits []uint
	for _, attempt := range attempts {
		found, ok, err := r.find(ctx, ref.Target, attempt)
		if err != nil {
			return nil, err
		}
		if ok && !slices.Contains(hits, found) {
			hits = append(hits, found)
		}
	}
	return hits, nil
}

func (r *Resolver) find(ctx context.Context, target Entity, attempt lookupAttempt) (uint, bool, error) {
	cacheKey := fmt.Sprintf("%s|%s|%v", target, attempt.column, attempt.value)
	if id, ok := r.cache[cacheKey]; ok {
		return id, true, nil
	}

	found, ok, err := r.store.Lookup(ctx, string(target), attempt.column, attempt.value)
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve %s %s=%v: %w", target, attempt.column, attempt.value, err)
	}
	if ok {
		r.cache[cacheKey] = found
	}
	return found, ok, nil
}

type lookupAttempt struct {
	column string
	value  any
}
