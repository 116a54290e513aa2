package toolserver

// The gsuite tools take the acting account as a user_id parameter, but the
// LLM side expects it under the __user_id__ alias. Schemas are rewritten at
// fetch time and selected arguments are mapped back before invocation.
const (
	userIDParam      = "user_id"
	userIDParamAlias = "__user_id__"
)

// NormalizeSchema rewrites a raw input_schema for presentation to the LLM:
// the user_id property is renamed to its alias, and per-property
// "required": true flags are lifted into the schema-level required array.
func NormalizeSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return schema
	}

	if userProp, ok := props[userIDParam]; ok {
		props[userIDParamAlias] = userProp
		delete(props, userIDParam)
	}

	var required []string
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if flag, ok := prop["required"].(bool); ok {
			delete(prop, "required")
			if flag {
				required = append(required, name)
			}
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// NormalizeArguments maps a user_id argument emitted by the LLM back to the
// alias the service expects
func NormalizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	if v, ok := args[userIDParam]; ok {
		args[userIDParamAlias] = v
		delete(args, userIDParam)
	}
	return args
}
