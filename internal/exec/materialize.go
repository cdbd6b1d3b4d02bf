package exec

// materializeOrderedRows streams every key ep's access plan selects,
// fetches and residual-filters rows, then stable-sorts them per the plan's
// order spec. It is the shared gather step Delete and Aggregate's
// materialized terminals build on; loadMaterialized runs the same steps
// inline before its cursor and window handling (spec §4.10: Delete step
// 1 "execute as a load internally to materialize the target key set";
// Aggregate's materialized terminals "reduce over full materialized
// responses").
func (e *Engine) materializeOrderedRows(ep *ExecutablePlan) (keys, rows [][]byte, err error) {
	b := ep.Binding
	s, err := e.buildStream(b, ep.Logical.Access, ep.Direction)
	if err != nil {
		return nil, nil, err
	}

	for {
		k, ok := s.Next()
		if !ok {
			break
		}
		row, present, err := e.fetchRow(b, k, ep.Logical.Consistency)
		if err != nil {
			return nil, nil, err
		}
		if !present {
			continue
		}
		keep, err := evaluateResidual(b, row, ep.Logical.Predicate)
		if err != nil {
			return nil, nil, err
		}
		if !keep {
			continue
		}
		keys = append(keys, k)
		rows = append(rows, row)
	}

	sortRowsByOrder(b, keys, rows, ep.Logical.Order)

	if ep.Logical.Distinct {
		keys, rows = distinctRows(keys, rows)
	}

	return keys, rows, nil
}
