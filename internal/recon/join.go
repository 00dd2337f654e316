package recon

import "sort"

// Join performs the full outer join of the two normalized tables on the
// composite key. Every key present on either side contributes exactly one
// output row, with the missing side's measure left at zero and its presence
// flag false. The result is sorted by composite key ascending; this sort is
// the determinism guarantee, since map iteration carries no order.
// Parameters:
//   - assigned: normalized actual-assignment groups.
//   - estimated: normalized estimated-requirement groups.
// Returns:
//   - []ReconciledRecord: one row per key, metrics not yet derived.
//   - error: *JoinError when a row lacks the composite key or repeats one.
func Join(assigned, estimated []NormalizedGroup) ([]ReconciledRecord, error) {
	if err := checkKeys(RoleAssigned, assigned); err != nil {
		return nil, err
	}
	if err := checkKeys(RoleEstimated, estimated); err != nil {
		return nil, err
	}

	merged := make(map[string]*ReconciledRecord, len(assigned)+len(estimated))

	for _, g := range assigned {
		merged[g.Key] = &ReconciledRecord{
			Key:           g.Key,
			ClientKey:     g.ClientKey,
			UnitKey:       g.UnitKey,
			ServiceKey:    g.ServiceKey,
			Actual:        g.Headcount,
			InActual:      true,
			AssignedAttrs: g.Attrs,
		}
	}

	for _, g := range estimated {
		if r, ok := merged[g.Key]; ok {
			r.Estimated = g.Headcount
			r.InEstimated = true
			r.EstimatedAttrs = g.Attrs
			continue
		}
		merged[g.Key] = &ReconciledRecord{
			Key:            g.Key,
			ClientKey:      g.ClientKey,
			UnitKey:        g.UnitKey,
			ServiceKey:     g.ServiceKey,
			Estimated:      g.Headcount,
			InEstimated:    true,
			EstimatedAttrs: g.Attrs,
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ReconciledRecord, len(keys))
	for i, k := range keys {
		out[i] = *merged[k]
	}
	return out, nil
}

func checkKeys(role Role, groups []NormalizedGroup) error {
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g.Key == "" {
			return &JoinError{Role: role, Reason: "row without composite key"}
		}
		if _, dup := seen[g.Key]; dup {
			return &JoinError{Role: role, Reason: "duplicate composite key " + g.Key}
		}
		seen[g.Key] = struct{}{}
	}
	return nil
}
