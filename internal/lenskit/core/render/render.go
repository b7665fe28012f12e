// Package render produces the canonical merged markdown artifact: a
// single document with strictly nested, symmetric zone markers wrapping
// a meta zone, structure zone, index zone, manifest zone, and one code
// zone per file.
package render

import (
	"fmt"
	"strings"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
)

// FileBlock is the minimal per-file input the emitter needs to render
// one code zone.
type FileBlock struct {
	FileID  string // FILE:f_<hex>
	Path    string
	Content string
}

// Options controls the emitted document.
type Options struct {
	RepoName      string
	StructureText string // pre-rendered structure zone body
	IndexText     string // pre-rendered index zone body
	ManifestText  string // pre-rendered manifest zone body
	SplitSize     int    // > 0 enables splitting into numbered parts
}

const readingPolicyHeader = `<!-- READING_POLICY: the canonical content artifact for this repository is this merged markdown file; navigation artifacts (sidecar, chunk index, manifest) describe but do not replace it. -->`

func beginZone(zoneType, id string) string {
	return fmt.Sprintf("<!-- zone:begin type=%s id=%s -->", zoneType, id)
}

func endZone(zoneType, id string) string {
	return fmt.Sprintf("<!-- zone:end type=%s id=%s -->", zoneType, id)
}

// Render produces the full canonical merged markdown for one repository
// scan. Zone nesting is: meta, structure, index, manifest, then one
// code zone per file — all siblings at the top level, each individually
// well-formed and non-overlapping, satisfying the strict-nesting
// invariant trivially since no zone contains another.
func Render(opts Options, files []FileBlock) string {
	var b strings.Builder

	b.WriteString(readingPolicyHeader)
	b.WriteString("\n\n")

	writeZone(&b, "meta", "meta:"+opts.RepoName, func() {
		fmt.Fprintf(&b, "# %s\n\nGenerated merged markdown corpus.\n", opts.RepoName)
	})

	writeZone(&b, "structure", "structure:"+opts.RepoName, func() {
		b.WriteString(opts.StructureText)
	})

	writeZone(&b, "index", "index:"+opts.RepoName, func() {
		b.WriteString(opts.IndexText)
	})

	writeZone(&b, "manifest", "manifest:"+opts.RepoName, func() {
		b.WriteString(opts.ManifestText)
	})

	for _, f := range files {
		writeZone(&b, "code", f.FileID, func() {
			fmt.Fprintf(&b, "<!-- FILE_START path=%s -->\n", f.Path)
			b.WriteString("```\n")
			b.WriteString(f.Content)
			if !strings.HasSuffix(f.Content, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("```\n")
			fmt.Fprintf(&b, "<!-- FILE_END path=%s -->\n", f.Path)
		})
	}

	return b.String()
}

func writeZone(b *strings.Builder, zoneType, id string, body func()) {
	b.WriteString(beginZone(zoneType, id))
	b.WriteString("\n")
	body()
	b.WriteString(endZone(zoneType, id))
	b.WriteString("\n\n")
}

// Split divides a rendered document into parts no larger than
// splitSizeBytes, only ever breaking at a top-level zone boundary so no
// part contains a partial zone. If splitSizeBytes <= 0, the whole
// document is returned as a single part.
func Split(doc string, splitSizeBytes int) []string {
	if splitSizeBytes <= 0 {
		return []string{doc}
	}

	blocks := splitIntoZoneBlocks(doc)
	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, blk := range blocks {
		if current.Len() > 0 && current.Len()+len(blk) > splitSizeBytes {
			flush()
		}
		current.WriteString(blk)
	}
	flush()

	if len(parts) == 0 {
		return []string{doc}
	}
	return parts
}

// splitIntoZoneBlocks breaks doc into chunks, one per top-level zone
// (plus the leading header), each starting at a "<!-- zone:begin" and
// running through its matching "<!-- zone:end" line.
func splitIntoZoneBlocks(doc string) []string {
	lines := strings.SplitAfter(doc, "\n")

	var blocks []string
	var current strings.Builder
	depth := 0
	started := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "<!-- zone:begin") {
			if depth == 0 && started {
				blocks = append(blocks, current.String())
				current.Reset()
			}
			depth++
			started = true
		}
		current.WriteString(line)
		if strings.HasPrefix(trimmed, "<!-- zone:end") {
			depth--
		}
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

// zoneMarker is one parsed begin/end marker line.
type zoneMarker struct {
	isBegin  bool
	zoneType string
	id       string
}

func parseZoneMarkers(doc string) []zoneMarker {
	var markers []zoneMarker
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		isBegin := strings.HasPrefix(line, "<!-- zone:begin")
		isEnd := strings.HasPrefix(line, "<!-- zone:end")
		if !isBegin && !isEnd {
			continue
		}
		zt, id := parseZoneAttrs(line)
		markers = append(markers, zoneMarker{isBegin: isBegin, zoneType: zt, id: id})
	}
	return markers
}

func parseZoneAttrs(line string) (zoneType, id string) {
	fields := strings.Fields(line)
	for _, f := range fields {
		if strings.HasPrefix(f, "type=") {
			zoneType = strings.TrimPrefix(f, "type=")
		}
		if strings.HasPrefix(f, "id=") {
			id = strings.TrimSuffix(strings.TrimPrefix(f, "id="), "-->")
		}
	}
	return zoneType, id
}

// CheckZoneSymmetry verifies that every zone:begin has exactly one
// matching zone:end with identical type and id, and that zones nest
// strictly (stack-based). Returns the first asymmetry found, if any.
func CheckZoneSymmetry(doc string) error {
	markers := parseZoneMarkers(doc)
	var stack []zoneMarker

	for _, m := range markers {
		if m.isBegin {
			stack = append(stack, m)
			continue
		}
		if len(stack) == 0 {
			return lenserr.ZoneAsymmetry(m.zoneType, m.id)
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.zoneType != m.zoneType || top.id != m.id {
			return lenserr.ZoneAsymmetry(m.zoneType, m.id)
		}
	}
	if len(stack) != 0 {
		unclosed := stack[len(stack)-1]
		return lenserr.ZoneAsymmetry(unclosed.zoneType, unclosed.id)
	}
	return nil
}
