// Package openapi derives field descriptors from the request body schemas of
// a Hitas API OpenAPI document. kin-openapi stays behind this package; callers
// only see model descriptors.
package openapi
