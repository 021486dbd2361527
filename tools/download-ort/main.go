// Build-time tool that fetches the native libraries needed for -tags ORT
// builds: the ONNX Runtime shared library and the HuggingFace tokenizers
// static library for the current platform.
//
// Required env: ORT_VERSION        (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR        (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// artifact is one native library to fetch and unpack into the lib dir.
type artifact struct {
	name     string
	url      string
	fileName string
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fmt.Fprintln(os.Stderr, "ORT_VERSION env var is required")
		os.Exit(1)
	}

	tokVersion := os.Getenv("TOKENIZERS_VERSION")
	if tokVersion == "" {
		tokVersion = "1.24.0"
	}

	libDir := os.Getenv("ORT_LIB_DIR")
	if libDir == "" {
		libDir = "./lib"
	}

	if err := os.MkdirAll(libDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	artifacts, err := platformArtifacts(ortVersion, tokVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	for _, a := range artifacts {
		if err := install(a, libDir); err != nil {
			fmt.Fprintf(os.Stderr, "%s download failed: %v\n", a.name, err)
			os.Exit(1)
		}
	}
}

// platformArtifacts resolves the download URLs for the current GOOS/GOARCH.
func platformArtifacts(ortVersion, tokVersion string) ([]artifact, error) {
	type target struct {
		ortArchive string
		ortLib     string
		tokArchive string
	}

	targets := map[string]target{
		"linux/amd64":  {"onnxruntime-linux-x64-%s.tgz", "libonnxruntime.so", "libtokenizers.linux-amd64.tar.gz"},
		"linux/arm64":  {"onnxruntime-linux-aarch64-%s.tgz", "libonnxruntime.so", "libtokenizers.linux-arm64.tar.gz"},
		"darwin/amd64": {"onnxruntime-osx-x86_64-%s.tgz", "libonnxruntime.dylib", "libtokenizers.darwin-x86_64.tar.gz"},
		"darwin/arm64": {"onnxruntime-osx-arm64-%s.tgz", "libonnxruntime.dylib", "libtokenizers.darwin-arm64.tar.gz"},
	}

	key := runtime.GOOS + "/" + runtime.GOARCH
	t, ok := targets[key]
	if !ok {
		return nil, fmt.Errorf("no prebuilt libraries for %s", key)
	}

	ortArchive := fmt.Sprintf(t.ortArchive, ortVersion)

	return []artifact{
		{
			name:     "ONNX Runtime",
			url:      fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%s/%s", ortVersion, ortArchive),
			fileName: t.ortLib,
		},
		{
			name:     "tokenizers",
			url:      fmt.Sprintf("https://github.com/daulet/tokenizers/releases/download/v%s/%s", tokVersion, t.tokArchive),
			fileName: "libtokenizers.a",
		},
	}, nil
}

// install fetches the artifact unless its target file already exists.
func install(a artifact, libDir string) error {
	destPath := filepath.Join(libDir, a.fileName)
	if _, err := os.Stat(destPath); err == nil {
		fmt.Printf("%s already exists at %s, skipping\n", a.name, destPath)
		return nil
	}

	fmt.Printf("Downloading %s from %s\n", a.name, a.url)

	delay := 2 * time.Second
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetch(a.url, libDir, a.fileName); err == nil {
			fmt.Printf("%s installed to %s\n", a.name, destPath)
			return nil
		}
	}
	return err
}

func fetch(url, libDir, fileName string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	return extract(resp.Body, libDir, fileName)
}

// extract pulls fileName out of a .tar.gz stream. Versioned variants such
// as libonnxruntime.1.23.2.dylib match too; the extracted copy keeps the
// plain name so the loader finds it.
func extract(body io.Reader, libDir, fileName string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}

		// Symlinks and directories are skipped; only the real file matters.
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != fileName && !strings.HasPrefix(base, stem+".") {
			continue
		}

		return writeFile(filepath.Join(libDir, fileName), tr)
	}

	return fmt.Errorf("%s not found in archive", fileName)
}

func writeFile(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return out.Close()
}
