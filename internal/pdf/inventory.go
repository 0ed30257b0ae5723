package pdf

// ListFields enumerates the named fields of a template: the widget inventory
// a mapping table is audited against. Order follows the template's Fields
// array.
func ListFields(template []byte) ([]Field, error) {
	ctx, err := readContext(template)
	if err != nil {
		return nil, err
	}
	f, err := parseForm(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Field, 0, len(f.fields))
	for _, fld := range f.fields {
		field := Field{
			Name:     fld.name,
			Kind:     fld.kind,
			ReadOnly: fld.readOnly,
		}
		switch fld.kind {
		case FieldRadio, FieldCheckbox:
			field.Options = fld.options()
		}
		out = append(out, field)
	}
	return out, nil
}
