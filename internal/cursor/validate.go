package cursor

import (
	"bytes"

	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/schema"
)

// ExecutablePlanView is the subset of an executable/bound plan that
// ValidatePlannedCursor needs: its signature, direction, order spec, and
// (for IndexRange access) the index and range bounds the cursor anchor
// must fall within.
type ExecutablePlanView struct {
	Signature  [32]byte
	Direction  plan.OrderDirection
	Order      []plan.OrderField
	Access     plan.AccessPlan
	RawLower   []byte
	RawUpper   []byte
	IndexID    key.IndexID
}

// ValidatePlannedCursor implements validate_planned_cursor (spec §4.11
// steps 2-5; step 1, decode, is the caller's DecodeToken call before this).
func ValidatePlannedCursor(model *schema.EntityModel, tok ContinuationToken, view ExecutablePlanView) error {
	if tok.Version != tokenVersion {
		return errs.Newf(errs.Corruption, errs.Query, "cursor: unsupported version %d", tok.Version)
	}
	if tok.Signature != view.Signature {
		return errs.New(errs.Corruption, errs.Query, "cursor: signature mismatch between token and executable plan")
	}
	if tok.Direction != view.Direction {
		return errs.New(errs.Corruption, errs.Query, "cursor: direction mismatch between token and executable plan")
	}
	if len(tok.Boundary.Slots) != len(view.Order) {
		return errs.Newf(errs.Corruption, errs.Query, "cursor: boundary has %d slots, order spec has %d fields", len(tok.Boundary.Slots), len(view.Order))
	}
	for i, slot := range tok.Boundary.Slots {
		if slot.Kind != SlotPresent {
			continue
		}
		field := model.FindField(view.Order[i].Field)
		if field == nil {
			return errs.Newf(errs.Corruption, errs.Query, "cursor: order field %q no longer declared on entity %q", view.Order[i].Field, model.Path)
		}
		if slot.ValueKind != field.Type {
			return errs.Newf(errs.Corruption, errs.Query, "cursor: boundary slot %d kind %s does not match order field %q of type %s", i, slot.ValueKind, view.Order[i].Field, field.Type)
		}
	}

	if view.Access.Kind == plan.CompositePath && view.Access.Path.Kind == plan.AccessIndexRange {
		return validateIndexRangeAnchor(tok, view)
	}
	return nil
}

func validateIndexRangeAnchor(tok ContinuationToken, view ExecutablePlanView) error {
	if tok.IndexRangeAnchor == nil {
		return errs.New(errs.Corruption, errs.Query, "cursor: IndexRange access requires an index_range_anchor")
	}
	ik, err := key.FromRaw(tok.IndexRangeAnchor)
	if err != nil {
		return errs.Wrap(errs.Corruption, errs.Query, "cursor: failed to decode index_range_anchor", err)
	}
	if ik.Index != view.IndexID {
		return errs.New(errs.Corruption, errs.Query, "cursor: index_range_anchor index_id does not match executable plan")
	}
	if ik.Kind != key.KindUser {
		return errs.New(errs.Corruption, errs.Query, "cursor: index_range_anchor must be a User-namespace key")
	}
	expectedArity := len(view.Access.Path.PrefixVals) + 1
	if len(ik.Components) != expectedArity {
		return errs.Newf(errs.Corruption, errs.Query, "cursor: index_range_anchor has %d components, expected %d", len(ik.Components), expectedArity)
	}
	if key.EnvelopeIsEmpty(view.RawLower, view.RawUpper) {
		return nil
	}
	if len(view.RawLower) > 0 && bytes.Compare(tok.IndexRangeAnchor, view.RawLower) < 0 {
		return errs.New(errs.Corruption, errs.Query, "cursor: index_range_anchor lies below the executable plan's lower bound")
	}
	if len(view.RawUpper) > 0 && bytes.Compare(tok.IndexRangeAnchor, view.RawUpper) > 0 {
		return errs.New(errs.Corruption, errs.Query, "cursor: index_range_anchor lies above the executable plan's upper bound")
	}
	return nil
}
