package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/artifact"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/chunk"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/config"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lens"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/redact"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/render"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/scan"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/tag"
)

// EmitOptions configures one full pipeline run: scan, tag, redact,
// chunk, render, and artifact emission.
type EmitOptions struct {
	Root          string
	MergesDir     string
	Base          string
	RepoName      string
	ProjectConfig string
	SplitBytes    int
	RedactSecrets bool
}

// EmitResult names every artifact path a pipeline run wrote.
type EmitResult struct {
	RunID           string   `json:"run_id"`
	CanonicalParts  []string `json:"canonical_parts"`
	SidecarPath     string   `json:"sidecar_path"`
	ChunkIndexPath  string   `json:"chunk_index_path"`
	DumpIndexPath   string   `json:"dump_index_path"`
	DerivedIndexPath string  `json:"derived_index_path"`
	BundlePath      string   `json:"bundle_path"`
	ArchitecturePath string  `json:"architecture_path"`
	TotalFiles      int      `json:"total_files"`
	TotalChunks     int      `json:"total_chunks"`
}

type scannedFile struct {
	info    scan.FileInfo
	content string
	tags    tag.Tags
	lens    lens.Lens
}

// RunEmit executes the full merge pipeline over opts.Root and writes
// every output-layout artifact into opts.MergesDir.
func RunEmit(opts EmitOptions) (*EmitResult, error) {
	chunkParams := chunkParamsFor(opts.ProjectConfig)

	scanOpts := scan.Options{Root: opts.Root, CalculateHash: true, HonorGitignore: true}
	repoScan, err := scan.Scan(context.Background(), scanOpts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.MergesDir, 0o755); err != nil {
		return nil, lenserr.IOError("mkdir", opts.MergesDir, err)
	}

	var written []string
	cleanup := func() { artifact.CleanupOnFailure(written) }

	files := make([]scannedFile, 0, len(repoScan.Files))
	for _, fi := range repoScan.Files {
		if fi.Skipped || !fi.IsText {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(opts.Root, fi.Path))
		if err != nil {
			cleanup()
			return nil, lenserr.IOError("read", fi.Path, err)
		}
		content := string(raw)
		if opts.RedactSecrets {
			content, _ = redact.Redact(content)
		}
		files = append(files, scannedFile{
			info:    fi,
			content: content,
			tags:    tag.Tag(fi.Path, content),
			lens:    lens.InferLens(fi.Path),
		})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].info.Path < files[j].info.Path })

	runID := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339)
	gen := artifact.Generator{Name: "lenskit", Version: "dev", Platform: "go"}

	fileBlocks := make([]render.FileBlock, 0, len(files))
	var chunkRecords []artifact.ChunkRecord
	sidecarFiles := make([]artifact.SidecarFile, 0, len(files))
	byLens := map[lens.Lens][]string{}

	for _, f := range files {
		fileID := f.info.FileID
		fileBlocks = append(fileBlocks, render.FileBlock{FileID: fileID, Path: f.info.Path, Content: f.content})
		byLens[f.lens] = append(byLens[f.lens], f.info.Path)

		chunks := chunk.ChunkFile(fileID, f.content, 0, f.info.Path, chunkParams)
		for _, c := range chunks {
			chunkRecords = append(chunkRecords, artifact.ChunkRecordFrom(
				c.ChunkID, c.FileID, f.info.Path, c.StartByte, c.EndByte, c.StartLine, c.EndLine,
				c.ContentSHA256, c.SizeBytes, tag.LanguageFromExtension(f.info.Path),
				string(f.tags.Section), string(f.tags.Layer), string(f.tags.ArtifactType), f.tags.Concepts,
				f.content[c.StartByte:c.EndByte],
			))
		}

		sidecarFiles = append(sidecarFiles, artifact.SidecarFile{
			ID:              fileID,
			Path:            f.info.Path,
			SHA256:          f.info.SHA256,
			SizeBytes:       f.info.Size,
			Language:        tag.LanguageFromExtension(f.info.Path),
			EstimatedTokens: estimateTokens(f.content),
			TopLevelSymbols: nil,
		})
	}

	canonicalMD := render.Render(render.Options{
		RepoName:      opts.RepoName,
		StructureText: renderStructureText(byLens),
		IndexText:     renderIndexText(files),
		ManifestText:  "See bundle.manifest.json for the full artifact manifest.\n",
		SplitSize:     opts.SplitBytes,
	}, fileBlocks)

	parts := render.Split(canonicalMD, opts.SplitBytes)
	var canonicalPaths []string
	for i, part := range parts {
		name := opts.Base + "_merge.md"
		if len(parts) > 1 {
			name = fmt.Sprintf("%s_merge_part%02d.md", opts.Base, i+1)
		}
		p := filepath.Join(opts.MergesDir, name)
		if err := artifact.WriteAtomic(p, []byte(part)); err != nil {
			cleanup()
			return nil, err
		}
		written = append(written, p)
		canonicalPaths = append(canonicalPaths, name)
	}

	chunkJSONL, err := artifact.EmitChunkJSONL(chunkRecords)
	if err != nil {
		cleanup()
		return nil, err
	}
	chunkIndexName := opts.Base + ".chunk_index.jsonl"
	chunkIndexPath := filepath.Join(opts.MergesDir, chunkIndexName)
	if err := artifact.WriteAtomic(chunkIndexPath, chunkJSONL); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, chunkIndexPath)

	sidecar := artifact.Sidecar{
		Meta: artifact.SidecarMeta{
			Contract:           "repolens-agent",
			ContractVersion:    "v2",
			TotalFiles:         len(sidecarFiles),
			Features:           []string{},
			Generator:          gen,
			ChunkIndexContract: "chunk-index",
			DumpIndexContract:  "dump-index",
			SchemaIDs: map[string]string{
				"dump_index": string(contracts.SchemaDumpIndexV1),
			},
			ReadingPolicy: artifact.ReadingPolicy{
				CanonicalContentArtifact: canonicalPaths[0],
				NavigationArtifacts:      []string{chunkIndexName, opts.Base + ".dump_index.json"},
			},
			OutputMode: "single",
		},
		Files: sidecarFiles,
		Artifacts: artifact.SidecarArtifacts{
			ChunkIndexBasename: chunkIndexName,
			MDPartsBasenames:   canonicalPaths,
		},
	}
	sidecarData, err := artifact.EmitSidecar(sidecar)
	if err != nil {
		cleanup()
		return nil, err
	}
	sidecarName := opts.Base + ".json"
	sidecarPath := filepath.Join(opts.MergesDir, sidecarName)
	if err := artifact.WriteAtomic(sidecarPath, sidecarData); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, sidecarPath)

	archText := renderArchitectureSummary(opts.RepoName, byLens)
	archName := opts.Base + "_architecture.md"
	archPath := filepath.Join(opts.MergesDir, archName)
	if err := artifact.WriteAtomic(archPath, []byte(archText)); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, archPath)

	dumpEntries := map[string]artifact.DumpIndexEntry{
		"merge_md":     dumpEntry(canonicalPaths[0], string(contracts.RoleCanonicalMD), "text/markdown", parts[0]),
		"sidecar_json": dumpEntry(sidecarName, string(contracts.RoleIndexSidecarJSON), "application/json", string(sidecarData)),
		"chunk_index":  dumpEntry(chunkIndexName, string(contracts.RoleChunkIndexJSONL), "application/jsonl", string(chunkJSONL)),
		"architecture_summary": dumpEntry(archName, string(contracts.RoleArchitectureSummary), "text/markdown", archText),
	}
	dumpIndex := artifact.DumpIndex{Contract: "dump-index", RunID: runID, Artifacts: dumpEntries}
	dumpData, err := artifact.EmitDumpIndex(dumpIndex)
	if err != nil {
		cleanup()
		return nil, err
	}
	dumpIndexName := opts.Base + ".dump_index.json"
	dumpIndexPath := filepath.Join(opts.MergesDir, dumpIndexName)
	if err := artifact.WriteAtomic(dumpIndexPath, dumpData); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, dumpIndexPath)

	canonicalDumpSHA256 := hashutil.HashBytes(dumpData)
	derivedData := []byte(fmt.Sprintf("{\n  \"contract\": \"derived-index\",\n  \"run_id\": %q,\n  \"canonical_dump_sha256\": %q\n}\n", runID, canonicalDumpSHA256))
	derivedName := opts.Base + ".derived_index.json"
	derivedPath := filepath.Join(opts.MergesDir, derivedName)
	if err := artifact.WriteAtomic(derivedPath, derivedData); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, derivedPath)

	otherArtifacts := []artifact.ManifestArtifact{
		{Role: string(contracts.RoleCanonicalMD), Path: canonicalPaths[0], ContentType: "text/markdown",
			Bytes: int64(len(parts[0])), SHA256: hashutil.HashBytes([]byte(parts[0])), Interpretation: artifact.ManifestInterpretation{Mode: "role_only"}},
		{Role: string(contracts.RoleIndexSidecarJSON), Path: sidecarName, ContentType: "application/json",
			Bytes: int64(len(sidecarData)), SHA256: hashutil.HashBytes(sidecarData), Interpretation: artifact.ManifestInterpretation{Mode: "contract"}, Contract: "repolens-agent"},
		{Role: string(contracts.RoleChunkIndexJSONL), Path: chunkIndexName, ContentType: "application/jsonl",
			Bytes: int64(len(chunkJSONL)), SHA256: hashutil.HashBytes(chunkJSONL), Interpretation: artifact.ManifestInterpretation{Mode: "role_only"}},
		{Role: string(contracts.RoleDumpIndexJSON), Path: dumpIndexName, ContentType: "application/json",
			Bytes: int64(len(dumpData)), SHA256: hashutil.HashBytes(dumpData), Interpretation: artifact.ManifestInterpretation{Mode: "contract"}, Contract: string(contracts.SchemaDumpIndexV1)},
		{Role: string(contracts.RoleArchitectureSummary), Path: archName, ContentType: "text/markdown",
			Bytes: int64(len(archText)), SHA256: hashutil.HashBytes([]byte(archText)), Interpretation: artifact.ManifestInterpretation{Mode: "role_only"}},
	}

	completeness := artifact.Completeness{
		IsComplete:    true,
		Policy:        "single",
		Parts:         canonicalPaths,
		PrimaryPart:   canonicalPaths[0],
		ExpectedBytes: 0,
		EmittedBytes:  int64(len(canonicalMD)),
	}

	bundleName := opts.Base + ".bundle.manifest.json"
	bundleData, _, err := artifact.BuildBundleManifest(
		otherArtifacts,
		artifact.SelfEntrySpec{Role: contracts.RoleDerivedManifestJSON, Path: bundleName, ContentType: "application/json"},
		gen, runID, createdAt,
		artifact.ManifestLinks{CanonicalDumpIndexSHA256: canonicalDumpSHA256},
		artifact.ManifestCapabilities{},
		completeness,
	)
	if err != nil {
		cleanup()
		return nil, err
	}
	bundlePath := filepath.Join(opts.MergesDir, bundleName)
	if err := artifact.WriteAtomic(bundlePath, bundleData); err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, bundlePath)

	return &EmitResult{
		RunID:            runID,
		CanonicalParts:   canonicalPaths,
		SidecarPath:      sidecarName,
		ChunkIndexPath:   chunkIndexName,
		DumpIndexPath:    dumpIndexName,
		DerivedIndexPath: derivedName,
		BundlePath:       bundleName,
		ArchitecturePath: archName,
		TotalFiles:       len(files),
		TotalChunks:      len(chunkRecords),
	}, nil
}

func dumpEntry(path, role, contentType, content string) artifact.DumpIndexEntry {
	return artifact.DumpIndexEntry{
		Path: path, Role: role, ContentType: contentType,
		Bytes:  int64(len(content)),
		SHA256: hashutil.HashBytes([]byte(content)),
	}
}

// estimateTokens applies the common ~4-bytes-per-token rule of thumb.
func estimateTokens(content string) int {
	return len(content) / 4
}

func renderStructureText(byLens map[lens.Lens][]string) string {
	var b strings.Builder
	order := []lens.Lens{lens.LensGuards, lens.LensDataModels, lens.LensPipelines, lens.LensEntrypoint, lens.LensUI, lens.LensInterfaces, lens.LensCore}
	for _, l := range order {
		paths := byLens[l]
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)
		fmt.Fprintf(&b, "## %s\n", l)
		for _, p := range paths {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

func renderIndexText(files []scannedFile) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", f.info.Path, f.tags.Layer, f.tags.ArtifactType)
	}
	return b.String()
}

func renderArchitectureSummary(repoName string, byLens map[lens.Lens][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s architecture summary\n\n", repoName)
	order := []lens.Lens{lens.LensGuards, lens.LensDataModels, lens.LensPipelines, lens.LensEntrypoint, lens.LensUI, lens.LensInterfaces, lens.LensCore}
	for _, l := range order {
		paths := byLens[l]
		fmt.Fprintf(&b, "%s: %d files\n", l, len(paths))
	}
	return b.String()
}

func chunkParamsFor(projectConfigPath string) chunk.Params {
	cfg := config.DefaultProjectConfig()
	if projectConfigPath != "" {
		if loaded, err := config.LoadProjectConfig(projectConfigPath); err == nil {
			cfg = *loaded
		}
	}
	return chunk.Params{
		MinSize:  cfg.Chunk.MinSize,
		MaxSize:  cfg.Chunk.MaxSize,
		MinLines: cfg.Chunk.MinLines,
		MaxLines: cfg.Chunk.MaxLines,
	}
}
