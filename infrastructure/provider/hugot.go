package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// miniLMDimensions is the vector width all-MiniLM-L6-v2 produces.
const miniLMDimensions = 384

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all HugotEmbedder
// instances must share it. The mutex serializes both initialization and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// HugotEmbedder generates embeddings locally with the
// sentence-transformers/all-MiniLM-L6-v2 model via hugot.
//
// The model can come from two sources (checked in order):
//  1. Model files on disk — modelDir itself, or a subdirectory of it,
//     containing tokenizer.json.
//  2. Statically embedded in the binary (build tag embed_model), extracted
//     to modelDir on first use.
//
// All instances share a single ONNX Runtime session because ORT only
// supports one active session per process.
type HugotEmbedder struct {
	modelDir string
	loaded   bool
}

// NewHugotEmbedder creates a HugotEmbedder that looks for model files in
// modelDir. If no model exists on disk and the embed_model build tag was
// used, the embedded model is extracted to modelDir automatically.
func NewHugotEmbedder(modelDir string) *HugotEmbedder {
	return &HugotEmbedder{
		modelDir: modelDir,
	}
}

// Available reports whether a usable model exists, either compiled into
// the binary (embed_model build tag) or present on disk.
func (h *HugotEmbedder) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.diskModelPath()
	return err == nil
}

// Load initializes the shared ONNX Runtime session and the feature
// extraction pipeline. Idempotent; later calls return nil immediately.
func (h *HugotEmbedder) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.loaded {
		return nil
	}
	if err := h.initialize(); err != nil {
		return fmt.Errorf("load embedding model: %w", err)
	}
	h.loaded = true
	return nil
}

func (h *HugotEmbedder) initialize() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "asset-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// resolveModelPath returns the path to a usable model directory.
// It first checks for model files already on disk, then falls back to
// extracting the statically embedded model (if compiled in).
func (h *HugotEmbedder) resolveModelPath() (string, error) {
	if diskPath, err := h.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !hasEmbeddedModel {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model, or run download-model)", h.modelDir)
	}

	if err := os.MkdirAll(h.modelDir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	return extractEmbeddedModel(embeddedModelFS, h.modelDir)
}

// diskModelPath locates a model directory containing tokenizer.json:
// either modelDir itself or one of its immediate subdirectories (the
// layout hugot's downloader produces).
func (h *HugotEmbedder) diskModelPath() (string, error) {
	if _, err := os.Stat(filepath.Join(h.modelDir, "tokenizer.json")); err == nil {
		return h.modelDir, nil
	}

	entries, err := os.ReadDir(h.modelDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.modelDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.modelDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model with tokenizer.json found in %s", h.modelDir)
}

// extractEmbeddedModel writes the statically embedded model files to
// targetDir and returns the path to the model subdirectory.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", fmt.Errorf("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)

	// Skip extraction if already present
	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}

// Dimensions returns the vector width of all-MiniLM-L6-v2.
func (h *HugotEmbedder) Dimensions() int { return miniLMDimensions }

// Embed generates embeddings for the given texts in one pipeline run.
func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !h.loaded {
		return nil, ErrModelNotLoaded
	}

	// Hold the singleton mutex for inference — ORT is not thread-safe.
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("pipeline returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, vec := range result.Embeddings {
		if len(vec) != miniLMDimensions {
			return nil, fmt.Errorf("pipeline returned %d dimensions, want %d", len(vec), miniLMDimensions)
		}
		embeddings[i] = vec
	}

	return embeddings, nil
}

// Close is a no-op. The ONNX Runtime session is process-global and shared
// across all HugotEmbedder instances; it is cleaned up when the process
// exits.
func (h *HugotEmbedder) Close() error {
	return nil
}

var _ Embedder = (*HugotEmbedder)(nil)
