package schema

import (
	"strings"

	"icydb/internal/errs"
	"icydb/internal/key"
)

// Validate runs all structural checks on a fully built EntityModel, in the
// same required-fields -> uniqueness -> structural -> reference -> logical
// pipeline shape the teacher's Database.Validate uses for SQL schemas,
// generalized to entity/field/index models. It returns the first error
// encountered.
func (e *EntityModel) Validate() error {
	if err := e.validateRequiredFields(); err != nil {
		return err
	}
	if err := e.validateFieldUniqueness(); err != nil {
		return err
	}
	if err := e.validatePrimaryKey(); err != nil {
		return err
	}
	if err := e.validateIndexes(); err != nil {
		return err
	}
	return nil
}

func (e *EntityModel) validateRequiredFields() error {
	if e == nil {
		return errs.New(errs.Validation, errs.Query, "entity model is nil")
	}
	if strings.TrimSpace(e.Path) == "" {
		return errs.New(errs.Validation, errs.Query, "entity path is required")
	}
	if len(e.Path) > 15 {
		return errs.Newf(errs.Validation, errs.Query, "entity path %q exceeds 15 bytes", e.Path)
	}
	if len(e.Fields) == 0 {
		return errs.Newf(errs.Validation, errs.Query, "entity %q declares no fields", e.Path)
	}
	if strings.TrimSpace(e.PrimaryKey) == "" {
		return errs.Newf(errs.Validation, errs.Query, "entity %q has no primary key field", e.Path)
	}
	return nil
}

func (e *EntityModel) validateFieldUniqueness() error {
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Name] {
			return errs.Newf(errs.Validation, errs.Query, "entity %q declares field %q more than once", e.Path, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func (e *EntityModel) validatePrimaryKey() error {
	pk := e.FindField(e.PrimaryKey)
	if pk == nil {
		return errs.Newf(errs.Validation, errs.Query, "entity %q primary key %q is not a declared field", e.Path, e.PrimaryKey)
	}
	if pk.Nullable {
		return errs.Newf(errs.Validation, errs.Query, "entity %q primary key %q must not be nullable", e.Path, e.PrimaryKey)
	}
	if !IsIndexable(pk.Type) {
		return errs.Newf(errs.Validation, errs.Query, "entity %q primary key %q has non-indexable type %s", e.Path, e.PrimaryKey, pk.Type)
	}
	return nil
}

func (e *EntityModel) validateIndexes() error {
	seen := make(map[string]bool, len(e.Indexes))
	for _, idx := range e.Indexes {
		if strings.TrimSpace(idx.Name) == "" {
			return errs.Newf(errs.Validation, errs.Index, "entity %q declares an unnamed index", e.Path)
		}
		if seen[idx.Name] {
			return errs.Newf(errs.Validation, errs.Index, "entity %q declares index %q more than once", e.Path, idx.Name)
		}
		seen[idx.Name] = true

		if len(idx.Fields) == 0 {
			return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q declares no fields", idx.Name, e.Path)
		}
		// PK is always appended as the final component by the key codec
		// (spec §3.2); an index must not also declare it explicitly.
		if len(idx.Fields)+1 > key.MaxIndexFields {
			return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q has %d fields, exceeds %d once the primary key component is appended", idx.Name, e.Path, len(idx.Fields), key.MaxIndexFields-1)
		}
		fieldSeen := make(map[string]bool, len(idx.Fields))
		for _, fname := range idx.Fields {
			if fname == e.PrimaryKey {
				return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q must not declare primary key field %q as a non-terminal component", idx.Name, e.Path, fname)
			}
			if fieldSeen[fname] {
				return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q repeats field %q", idx.Name, e.Path, fname)
			}
			fieldSeen[fname] = true
			f := e.FindField(fname)
			if f == nil {
				return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q references undeclared field %q", idx.Name, e.Path, fname)
			}
			if !IsIndexable(f.Type) {
				return errs.Newf(errs.Validation, errs.Index, "index %q on entity %q references field %q of non-indexable type %s", idx.Name, e.Path, fname, f.Type)
			}
		}
	}
	return nil
}
