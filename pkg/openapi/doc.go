// Package openapi describes a form's submission payload as an OpenAPI 3
// schema. The schema mirrors the field types and the rules that have a schema
// equivalent (required, length, range, email, options); derived fields are
// read-only. CheckPayload validates a value map against it with kin-openapi,
// which gives hosts a second, standards-based check next to the rule engine.
package openapi
