// Package swagger serves the critique OpenAPI document.
//
// Routes, relative to the router they are registered on:
//
//	GET /openapi.yaml  the embedded document
//	GET /openapi.json  the same document converted to JSON
//	GET /docs          Swagger UI pointed at the YAML document
package swagger
