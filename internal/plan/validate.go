package plan

import (
	"icydb/internal/errs"
	"icydb/internal/schema"
)

// ValidateLogicalPlan implements validate_logical_plan_model (spec §4.6):
// order fields exist and are orderable; the terminal order field is the
// PK (tie-break); pagination requires an order spec; access-path targets
// line up with their declared PK/index shapes.
func ValidateLogicalPlan(model *schema.EntityModel, p *LogicalPlan) error {
	if err := validateOrder(model, p.Order); err != nil {
		return err
	}
	if p.Page != nil && len(p.Order) == 0 {
		return errs.New(errs.Validation, errs.Query, "plan: pagination requires an order spec")
	}
	if err := CheckAccessPlanInvariants(model, p.Access); err != nil {
		return err
	}
	return validateAccessAgainstSchema(model, p.Access)
}

func validateOrder(model *schema.EntityModel, order []OrderField) error {
	if len(order) == 0 {
		return nil
	}
	for _, f := range order {
		field := model.FindField(f.Field)
		if field == nil {
			return errs.Newf(errs.Validation, errs.Query, "plan: order field %q is not declared on entity %q", f.Field, model.Path)
		}
		if !schema.IsIndexable(field.Type) {
			return errs.Newf(errs.Validation, errs.Query, "plan: order field %q of type %s is not orderable", f.Field, field.Type)
		}
	}
	terminal := order[len(order)-1]
	if terminal.Field != model.PrimaryKey {
		return errs.Newf(errs.Validation, errs.Query, "plan: terminal order field must be the primary key %q, got %q", model.PrimaryKey, terminal.Field)
	}
	return nil
}

func validateAccessAgainstSchema(model *schema.EntityModel, p AccessPlan) error {
	switch p.Kind {
	case CompositePath:
		switch p.Path.Kind {
		case AccessIndexPrefix, AccessIndexRange:
			idx := model.FindIndex(p.Path.IndexName)
			if idx == nil {
				return errs.Newf(errs.Validation, errs.Index, "plan: index %q not declared on entity %q", p.Path.IndexName, model.Path)
			}
			if p.Path.Kind == AccessIndexPrefix && len(p.Path.PrefixVals) > len(idx.Fields) {
				return errs.Newf(errs.Validation, errs.Index, "plan: IndexPrefix length %d exceeds index %q field count %d", len(p.Path.PrefixVals), idx.Name, len(idx.Fields))
			}
		}
		return nil
	default:
		for _, c := range p.Children {
			if err := validateAccessAgainstSchema(model, c); err != nil {
				return err
			}
		}
		return nil
	}
}
