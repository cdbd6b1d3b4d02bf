package predicate

import (
	"icydb/internal/errs"
	"icydb/internal/schema"
	"icydb/internal/value"
)

// Validate checks a (not necessarily normalized) predicate tree against an
// entity model: every referenced field must exist, Compare/TextContains*
// fields must be indexable where the operator requires it, and In/NotIn
// must carry at least one literal (spec §4.4: "validation rejects unknown
// fields and operator/type mismatches before planning").
func Validate(p Predicate, model *schema.EntityModel) error {
	switch p.Kind {
	case KindTrue, KindFalse:
		return nil
	case KindAnd, KindOr:
		for _, c := range p.Children {
			if err := Validate(c, model); err != nil {
				return err
			}
		}
		return nil
	case KindNot:
		return Validate(*p.Child, model)
	case KindIsNull, KindIsMissing, KindIsEmpty, KindIsNotEmpty:
		return validateFieldExists(p.Field, model)
	case KindTextContains, KindTextContainsCi:
		if err := validateFieldExists(p.Field, model); err != nil {
			return err
		}
		return validateLiteralKind(p, value.KindText)
	case KindCompare:
		return validateCompare(p, model)
	default:
		return errs.Newf(errs.Validation, errs.Query, "predicate: unknown kind %d", p.Kind)
	}
}

func validateFieldExists(field string, model *schema.EntityModel) error {
	if model.FindField(field) == nil {
		return errs.Newf(errs.Validation, errs.Query, "predicate: field %q is not declared on entity %q", field, model.Path)
	}
	return nil
}

func validateCompare(p Predicate, model *schema.EntityModel) error {
	f := model.FindField(p.Field)
	if f == nil {
		return errs.Newf(errs.Validation, errs.Query, "predicate: field %q is not declared on entity %q", p.Field, model.Path)
	}

	switch p.Op {
	case In, NotIn:
		if len(p.Literals) == 0 {
			return errs.Newf(errs.Validation, errs.Query, "predicate: %s on field %q requires at least one literal", p.Op, p.Field)
		}
	default:
		if len(p.Literals) != 1 {
			return errs.Newf(errs.Validation, errs.Query, "predicate: %s on field %q requires exactly one literal", p.Op, p.Field)
		}
	}

	switch p.Op {
	case Lt, Lte, Gt, Gte:
		if !schema.IsIndexable(f.Type) {
			return errs.Newf(errs.Validation, errs.Query, "predicate: field %q of type %s does not support ordering comparisons", p.Field, f.Type)
		}
	case Contains, StartsWith, EndsWith:
		if f.Type != value.KindText && f.Type != value.KindBlob {
			return errs.Newf(errs.Validation, errs.Query, "predicate: field %q of type %s does not support %s", p.Field, f.Type, p.Op)
		}
	}

	for _, lit := range p.Literals {
		if p.Coercion == value.CoercionStrict && lit.Kind != f.Type {
			return errs.Newf(errs.Validation, errs.Query, "predicate: Strict coercion requires literal kind %s to equal field %q type %s", lit.Kind, p.Field, f.Type)
		}
		if !LiteralMatchesType(lit, f.Type) {
			return errs.Newf(errs.Validation, errs.Query, "predicate: literal kind %s does not match field %q of type %s", lit.Kind, p.Field, f.Type)
		}
	}
	return nil
}

func validateLiteralKind(p Predicate, want value.Kind) error {
	for _, lit := range p.Literals {
		if lit.Kind != want {
			return errs.Newf(errs.Validation, errs.Query, "predicate: %s requires a %s literal on field %q, got %s", predicateKindName(p.Kind), want, p.Field, lit.Kind)
		}
	}
	return nil
}

func predicateKindName(k Kind) string {
	switch k {
	case KindTextContains:
		return "TextContains"
	case KindTextContainsCi:
		return "TextContainsCi"
	default:
		return "compare"
	}
}

// LiteralMatchesType reports whether a literal's runtime Kind is
// compatible with a declared field type: an exact Kind match, or any
// pairing within the numeric family. It takes no coercion; validateCompare
// additionally requires an exact Kind match under Strict (spec §4.4).
// NumericWiden/TextCasefold never change the field's declared type, only
// how the literal is encoded for comparison.
func LiteralMatchesType(lit value.Value, fieldType value.Kind) bool {
	if lit.Kind == fieldType {
		return true
	}
	if isNumericKind(lit.Kind) && isNumericKind(fieldType) {
		return true
	}
	return false
}

func isNumericKind(k value.Kind) bool {
	switch k {
	case value.KindUint, value.KindInt, value.KindUint128, value.KindInt128,
		value.KindUintBig, value.KindIntBig, value.KindFloat32, value.KindFloat64, value.KindDecimal:
		return true
	default:
		return false
	}
}
