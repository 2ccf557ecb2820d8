package openapi

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Version is the OpenAPI version written by Document.
const Version = "3.0.3"

// Document wraps the form schema in a minimal OpenAPI document: the schema
// under components and one POST operation that accepts it as a JSON body.
func Document(form model.Form) *openapi3.T {
	name := ComponentName(form)
	schema := Schema(form)
	ref := "#/components/schemas/" + name

	body := openapi3.NewRequestBody().
		WithRequired(true).
		WithDescription("Values keyed by field id").
		WithJSONSchemaRef(openapi3.NewSchemaRef(ref, schema))

	op := openapi3.NewOperation()
	op.OperationID = "submit" + strings.TrimSuffix(name, "Submission")
	op.Summary = "Submit " + form.Name
	op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusNoContent, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Submission accepted"),
		}),
		openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Submission failed validation"),
		}),
	)

	return &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       form.Name,
			Description: form.Description,
			Version:     versionOf(form),
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath(SubmissionPath(form), &openapi3.PathItem{Post: op}),
		),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{name: openapi3.NewSchemaRef("", schema)},
		},
	}
}

// SubmissionPath is the path Document registers the submit operation under.
func SubmissionPath(form model.Form) string {
	return "/forms/" + form.ID + "/submissions"
}

// versionOf uses the form's last update as its API version.
func versionOf(form model.Form) string {
	if form.UpdatedAt != "" {
		return form.UpdatedAt
	}
	return "1.0.0"
}
