//go:build !embed_model

package provider

import "embed"

// No model compiled in; extractEmbeddedModel is unreachable because
// hasEmbeddedModel gates every use.
var embeddedModelFS embed.FS

const hasEmbeddedModel = false
