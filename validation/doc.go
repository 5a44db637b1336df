// Package validation checks request payloads, service configuration and node
// configuration against go-playground/validator struct tags.
//
// Failures come back as an errors.AppError whose "fields" detail lists every
// failing field, so a node can report all of its misconfigurations at once:
//
//	if fields, ok := validation.Fields(validation.Validate(cfg)); ok {
//	    problems = fields.Messages()
//	}
package validation
