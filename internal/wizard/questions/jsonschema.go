package questions

import "fmt"

const draft07 = "http://json-schema.org/draft-07/schema#"

// Custom string formats. Checkers are registered by the validation package;
// all of them accept the empty string so optional fields may be left blank.
const (
	FormatIsraeliID = "il-id"
	FormatPhone     = "il-phone"
	FormatEmail     = "contact-email"
	FormatDate      = "iso-date"
)

func buildSchema(fields []Field) (map[string]interface{}, error) {
	schema, err := objectSchema(fields)
	if err != nil {
		return nil, err
	}
	schema["$schema"] = draft07
	return schema, nil
}

func objectSchema(fields []Field) (map[string]interface{}, error) {
	properties := make(map[string]interface{}, len(fields))
	required := []string{}
	var conditions []interface{}

	for _, f := range fields {
		prop, err := fieldSchema(f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		properties[f.Name] = prop

		if !f.Required {
			continue
		}
		if f.DependsOn == nil {
			required = append(required, f.Name)
			continue
		}
		conditions = append(conditions, conditionalRequired(f))
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if len(conditions) > 0 {
		schema["allOf"] = conditions
	}
	return schema, nil
}

// conditionalRequired requires f only while its condition holds. Non-empty is
// enforced inside "then" because the unconditional property schema has to
// accept blanks when the condition does not hold.
func conditionalRequired(f Field) map[string]interface{} {
	then := map[string]interface{}{
		"required": []string{f.Name},
	}
	switch f.Type {
	case TypeRepeater:
		then["properties"] = map[string]interface{}{f.Name: map[string]interface{}{"minItems": 1}}
	case TypeText, TypeTextarea, TypeDate, TypeSelect, TypeRadio, TypeFile:
		then["properties"] = map[string]interface{}{f.Name: map[string]interface{}{"minLength": 1}}
	}
	return map[string]interface{}{
		"if": map[string]interface{}{
			"properties": map[string]interface{}{
				f.DependsOn.Field: map[string]interface{}{"const": f.DependsOn.Value},
			},
			"required": []string{f.DependsOn.Field},
		},
		"then": then,
	}
}

func fieldSchema(f Field) (map[string]interface{}, error) {
	unconditional := f.Required && f.DependsOn == nil

	switch f.Type {
	case TypeText, TypeTextarea, TypeFile:
		s := map[string]interface{}{"type": "string"}
		if f.Pattern != "" {
			s["pattern"] = f.Pattern
		}
		if f.Format != "" {
			s["format"] = f.Format
		}
		if f.Min != nil {
			s["minLength"] = int(*f.Min)
		} else if unconditional {
			s["minLength"] = 1
		}
		if f.Max != nil {
			s["maxLength"] = int(*f.Max)
		}
		return s, nil

	case TypeDate:
		s := map[string]interface{}{"type": "string", "format": FormatDate}
		if unconditional {
			s["minLength"] = 1
		}
		return s, nil

	case TypeNumber:
		s := map[string]interface{}{"type": "number"}
		if f.Min != nil {
			s["minimum"] = *f.Min
		}
		if f.Max != nil {
			s["maximum"] = *f.Max
		}
		return s, nil

	case TypeCheckbox:
		return map[string]interface{}{"type": "boolean"}, nil

	case TypeSelect, TypeRadio:
		if len(f.Options) == 0 {
			return nil, fmt.Errorf("%w: %s without options", ErrInvalidDefinition, f.Type)
		}
		enum := make([]interface{}, 0, len(f.Options)+1)
		for _, o := range f.Options {
			enum = append(enum, o.Value)
		}
		if !unconditional {
			enum = append(enum, "")
		}
		return map[string]interface{}{"type": "string", "enum": enum}, nil

	case TypeGroup:
		return objectSchema(f.Fields)

	case TypeRepeater:
		items, err := objectSchema(f.Fields)
		if err != nil {
			return nil, err
		}
		s := map[string]interface{}{"type": "array", "items": items}
		if f.Min != nil && unconditional {
			s["minItems"] = int(*f.Min)
		} else if unconditional {
			s["minItems"] = 1
		}
		if f.Max != nil {
			s["maxItems"] = int(*f.Max)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidDefinition, f.Type)
	}
}
