package openapi

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
)

// RequestSchema builds the object schema a client must send to submit def.
func RequestSchema(def forms.Definition) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Title = def.Title
	schema.Description = def.Description
	for _, spec := range def.Fields {
		f := spec.Field()
		schema.WithProperty(f.Name, fieldSchema(f))
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func fieldSchema(f field.Field) *openapi3.Schema {
	var schema *openapi3.Schema
	switch f.Kind {
	case field.KindNumber:
		schema = openapi3.NewFloat64Schema()
	case field.KindList:
		schema = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	case field.KindSelect:
		schema = openapi3.NewStringSchema()
		for _, opt := range f.Options {
			schema.Enum = append(schema.Enum, opt.Value)
		}
	default:
		schema = openapi3.NewStringSchema()
	}
	schema.Title = f.DisplayLabel()
	schema.Description = f.Help
	if f.Initial != nil {
		schema.Default = f.Initial
	}
	if f.Placeholder != "" {
		schema.Example = f.Placeholder
	}
	applyRules(schema, f)
	return schema
}

// applyRules mirrors field rules onto the schema. Length rules bound the item
// count for lists and the character count otherwise.
func applyRules(schema *openapi3.Schema, f field.Field) {
	for _, rule := range f.Rules {
		switch rule.Kind {
		case field.RuleMin, field.RuleMax:
			value, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
			if err != nil {
				continue
			}
			if rule.Kind == field.RuleMin {
				schema.Min = &value
			} else {
				schema.Max = &value
			}
		case field.RuleMinLength, field.RuleMaxLength:
			value, err := strconv.ParseUint(strings.TrimSpace(rule.Params["value"]), 10, 64)
			if err != nil {
				continue
			}
			switch {
			case f.Kind == field.KindList && rule.Kind == field.RuleMinLength:
				schema.MinItems = value
			case f.Kind == field.KindList:
				schema.MaxItems = &value
			case rule.Kind == field.RuleMinLength:
				schema.MinLength = value
			default:
				schema.MaxLength = &value
			}
		case field.RulePattern:
			schema.Pattern = rule.Params["pattern"]
		}
	}
	if f.Required && f.Kind != field.KindNumber && f.Kind != field.KindList && schema.MinLength == 0 {
		schema.MinLength = 1
	}
	if f.Required && f.Kind == field.KindList && schema.MinItems == 0 {
		schema.MinItems = 1
	}
}

// SchemaName turns a form id such as "business-specification" into a
// component name such as "BusinessSpecificationSubmission".
func SchemaName(id string) string {
	var b strings.Builder
	upper := true
	for _, r := range id {
		if r == '-' || r == '_' || r == ' ' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String() + "Submission"
}
