package openapi

import "embed"

// FS contains the versioned OpenAPI documents embedded into the binary.
//
//go:embed v1/*
var FS embed.FS

// V1 is the path of the v1 document inside FS.
const V1 = "v1/taskbalancer.yaml"
