// Package delta computes a two-snapshot diff between an old and a new
// repository root and emits a PR-Schau review bundle: a delta manifest,
// a self-referential bundle manifest, and a rendered review document.
package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/artifact"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/scan"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Status is a delta entry's change classification.
type Status string

const (
	StatusAdded   Status = "added"
	StatusChanged Status = "changed"
	StatusRemoved Status = "removed"
)

// FileEntry is one row of delta.json's files[] array.
type FileEntry struct {
	Path        string  `json:"path"`
	Status      Status  `json:"status"`
	SizeBytes   int64   `json:"size_bytes"`
	SHA256      *string `json:"sha256"`
	SHA256Status string `json:"sha256_status"`
}

// Summary tallies the files[] array by status.
type Summary struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

// Document is the pr-schau-delta.v1 document.
type Document struct {
	Kind        string      `json:"kind"`
	Version     int         `json:"version"`
	Repo        string      `json:"repo"`
	GeneratedAt string      `json:"generated_at"`
	Summary     Summary     `json:"summary"`
	Files       []FileEntry `json:"files"`
}

// Result is the full set of paths Generate wrote.
type Result struct {
	Dir         string
	BundlePath  string
	DeltaPath   string
	ReviewPath  string
	Document    Document
}

// Options configures one Generate run.
type Options struct {
	OldRoot string
	NewRoot string
	Repo    string
	HubDir  string
	RunID   string
	Gen     artifact.Generator
}

// Generate diffs OldRoot against NewRoot and writes bundle.json,
// delta.json and review.md under
// <HubDir>/.repolens/pr-schau/<Repo>/<ts-utc>/. The two snapshot scans
// are independent of each other, so they run concurrently via an
// errgroup.Group; everything from the diff state machine onward is
// single-threaded.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	var oldScan, newScan *scan.RepoScan

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := scan.Scan(gctx, scan.Options{Root: opts.OldRoot, CalculateHash: true, HonorGitignore: true})
		if err != nil {
			return lenserr.IOError("scan", opts.OldRoot, err)
		}
		oldScan = s
		return nil
	})
	g.Go(func() error {
		s, err := scan.Scan(gctx, scan.Options{Root: opts.NewRoot, CalculateHash: true, HonorGitignore: true})
		if err != nil {
			return lenserr.IOError("scan", opts.NewRoot, err)
		}
		newScan = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := diffScans(oldScan, newScan)

	ts := time.Now().UTC().Format("20060102T150405Z")
	dir := filepath.Join(opts.HubDir, ".repolens", "pr-schau", opts.Repo, ts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, lenserr.IOError("mkdir", dir, err)
	}

	doc := Document{
		Kind:        "repolens.pr_schau.delta",
		Version:     1,
		Repo:        opts.Repo,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:     summarize(files),
		Files:       files,
	}

	deltaData, err := marshalDocument(doc)
	if err != nil {
		return nil, err
	}
	deltaPath := filepath.Join(dir, "delta.json")
	if err := artifact.WriteAtomic(deltaPath, deltaData); err != nil {
		return nil, lenserr.IOError("write", deltaPath, err)
	}

	reviewMD := renderReview(opts.Repo, doc, oldScan, newScan)
	reviewPath := filepath.Join(dir, "review.md")
	if err := artifact.WriteAtomic(reviewPath, []byte(reviewMD)); err != nil {
		artifact.CleanupOnFailure([]string{deltaPath})
		return nil, lenserr.IOError("write", reviewPath, err)
	}

	bundlePath := filepath.Join(dir, "bundle.json")
	bundleData, _, err := artifact.BuildBundleManifest(
		[]artifact.ManifestArtifact{
			{
				Role:           string(contracts.RolePRDeltaJSON),
				Path:           "delta.json",
				ContentType:    "application/json",
				Bytes:          int64(len(deltaData)),
				SHA256:         hashutil.HashBytes(deltaData),
				Interpretation: artifact.ManifestInterpretation{Mode: "contract"},
				Contract:       string(contracts.SchemaPRSchauDeltaV1),
			},
			{
				Role:           string(contracts.RoleCanonicalMD),
				Path:           "review.md",
				ContentType:    "text/markdown",
				Bytes:          int64(len(reviewMD)),
				SHA256:         hashutil.HashBytes([]byte(reviewMD)),
				Interpretation: artifact.ManifestInterpretation{Mode: "role_only"},
			},
		},
		artifact.SelfEntrySpec{
			Role:        contracts.RoleDerivedManifestJSON,
			Path:        "bundle.json",
			ContentType: "application/json",
		},
		opts.Gen,
		opts.RunID,
		time.Now().UTC().Format(time.RFC3339),
		artifact.ManifestLinks{},
		artifact.ManifestCapabilities{},
		artifact.Completeness{
			IsComplete:    true,
			Policy:        "single",
			Parts:         []string{"review.md"},
			PrimaryPart:   "review.md",
			ExpectedBytes: 0,
			EmittedBytes:  int64(len(reviewMD)),
		},
	)
	if err != nil {
		artifact.CleanupOnFailure([]string{deltaPath, reviewPath})
		return nil, err
	}
	if err := artifact.WriteAtomic(bundlePath, bundleData); err != nil {
		artifact.CleanupOnFailure([]string{deltaPath, reviewPath})
		return nil, lenserr.IOError("write", bundlePath, err)
	}

	return &Result{
		Dir:        dir,
		BundlePath: bundlePath,
		DeltaPath:  deltaPath,
		ReviewPath: reviewPath,
		Document:   doc,
	}, nil
}

// diffScans runs the per-file state machine over old ∪ new paths.
func diffScans(oldScan, newScan *scan.RepoScan) []FileEntry {
	oldByPath := indexByPath(oldScan)
	newByPath := indexByPath(newScan)

	paths := make(map[string]bool)
	for p := range oldByPath {
		paths[p] = true
	}
	for p := range newByPath {
		paths[p] = true
	}

	var entries []FileEntry
	for p := range paths {
		o, inOld := oldByPath[p]
		n, inNew := newByPath[p]

		switch {
		case inOld && !inNew:
			entries = append(entries, removedEntry(p, o))
		case !inOld && inNew:
			entries = append(entries, addedOrChangedEntry(p, n, StatusAdded))
		case inOld && inNew:
			if o.SHA256 != n.SHA256 || o.SHA256 == "" {
				entries = append(entries, addedOrChangedEntry(p, n, StatusChanged))
			}
			// identical hashes: unchanged, omitted from files[].
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

func indexByPath(s *scan.RepoScan) map[string]scan.FileInfo {
	m := make(map[string]scan.FileInfo, len(s.Files))
	for _, f := range s.Files {
		if !f.Skipped {
			m[f.Path] = f
		}
	}
	return m
}

func removedEntry(path string, o scan.FileInfo) FileEntry {
	return FileEntry{
		Path:         path,
		Status:       StatusRemoved,
		SizeBytes:    o.Size,
		SHA256:       nil,
		SHA256Status: "skipped",
	}
}

func addedOrChangedEntry(path string, n scan.FileInfo, status Status) FileEntry {
	if n.HashStatus != hashutil.StatusOK {
		return FileEntry{
			Path:         path,
			Status:       status,
			SizeBytes:    n.Size,
			SHA256:       nil,
			SHA256Status: string(n.HashStatus),
		}
	}
	sha := n.SHA256
	return FileEntry{
		Path:         path,
		Status:       status,
		SizeBytes:    n.Size,
		SHA256:       &sha,
		SHA256Status: "ok",
	}
}

func summarize(files []FileEntry) Summary {
	var s Summary
	for _, f := range files {
		switch f.Status {
		case StatusAdded:
			s.Added++
		case StatusChanged:
			s.Changed++
		case StatusRemoved:
			s.Removed++
		}
	}
	return s
}

func marshalDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, lenserr.New(lenserr.KindSchemaViolation, "failed to serialize delta document", err)
	}
	return data, nil
}

// renderReview produces review.md: a mandatory summary zone followed by
// one diff zone per changed file, using the same zone-marker convention
// as the canonical merged markdown so CheckZoneSymmetry applies equally
// to review bundles.
func renderReview(repo string, doc Document, oldScan, newScan *scan.RepoScan) string {
	var b strings.Builder

	writeZone(&b, "summary", "summary:"+repo, func() {
		fmt.Fprintf(&b, "# PR-Schau review: %s\n\n", repo)
		fmt.Fprintf(&b, "- added: %d\n- changed: %d\n- removed: %d\n\n", doc.Summary.Added, doc.Summary.Changed, doc.Summary.Removed)
	})

	oldContent := contentByPath(oldScan)
	newContent := contentByPath(newScan)

	for _, f := range doc.Files {
		writeZone(&b, "diff", "diff:"+f.Path, func() {
			fmt.Fprintf(&b, "## %s (%s)\n\n", f.Path, f.Status)
			switch f.Status {
			case StatusRemoved:
				fmt.Fprintf(&b, "File removed (%d bytes).\n\n", f.SizeBytes)
			case StatusAdded:
				fmt.Fprintf(&b, "File added (%d bytes).\n\n", f.SizeBytes)
			case StatusChanged:
				writeUnifiedDiff(&b, f.Path, oldContent[f.Path], newContent[f.Path])
			}
		})
	}

	return b.String()
}

func writeUnifiedDiff(b *strings.Builder, path, before, after string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, true)

	b.WriteString("```diff\n")
	fmt.Fprintf(b, "--- a/%s\n", path)
	fmt.Fprintf(b, "+++ b/%s\n", path)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range strings.Split(d.Text, "\n") {
				if line != "" {
					fmt.Fprintf(b, "-%s\n", line)
				}
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range strings.Split(d.Text, "\n") {
				if line != "" {
					fmt.Fprintf(b, "+%s\n", line)
				}
			}
		}
	}
	b.WriteString("```\n\n")
}

func contentByPath(s *scan.RepoScan) map[string]string {
	m := make(map[string]string, len(s.Files))
	for _, f := range s.Files {
		if f.Skipped || !f.IsText {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(f.Path)))
		if err != nil {
			continue
		}
		m[f.Path] = string(data)
	}
	return m
}

func beginZone(zoneType, id string) string {
	return fmt.Sprintf("<!-- zone:begin type=%s id=%s -->", zoneType, id)
}

func endZone(zoneType, id string) string {
	return fmt.Sprintf("<!-- zone:end type=%s id=%s -->", zoneType, id)
}

func writeZone(b *strings.Builder, zoneType, id string, body func()) {
	b.WriteString(beginZone(zoneType, id))
	b.WriteString("\n")
	body()
	b.WriteString(endZone(zoneType, id))
	b.WriteString("\n\n")
}
