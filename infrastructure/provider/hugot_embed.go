//go:build embed_model

package provider

import "embed"

// Populated by cmd/download-model before building with -tags embed_model.
//
//go:embed all:models
var embeddedModelFS embed.FS

const hasEmbeddedModel = true
