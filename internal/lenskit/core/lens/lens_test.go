package lens

import "testing"

func TestInferLensMarkers(t *testing.T) {
	cases := map[string]Lens{
		".github/workflows/main.yml":   LensGuards,
		"wgx/config.json":              LensGuards,
		"tests/test_basic.py":          LensGuards,
		"src/contracts/user.proto":     LensDataModels,
		"src/schemas/event.schema.json": LensDataModels,
		"models.py":                    LensDataModels,
		"src/pipelines/daily_sync.py":  LensPipelines,
		"airflow/workflows/dag.py":     LensPipelines,
		"src/__main__.py":              LensEntrypoint,
		"manage.py":                    LensEntrypoint,
		"docs/README.md":               LensEntrypoint,
		"src/ui/button.tsx":            LensUI,
		"style.css":                    LensUI,
		"templates/index.html":         LensUI,
		"src/api/v1/users.py":          LensInterfaces,
		"src/service/user_service.py":  LensInterfaces,
		"src/logic/calculator.py":      LensCore,
		"src/domain/entity.py":         LensCore,
		"engine.py":                    LensCore,
	}
	for path, want := range cases {
		if got := InferLens(path); got != want {
			t.Errorf("InferLens(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInferLensPrecedence(t *testing.T) {
	cases := map[string]Lens{
		"src/core/service/logic.py": LensCore,
		"tests/models.py":           LensGuards,
		".github/bin/script.sh":     LensGuards,
	}
	for path, want := range cases {
		if got := InferLens(path); got != want {
			t.Errorf("InferLens(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInferLensFallback(t *testing.T) {
	if got := InferLens("misc/unknown_file.xyz"); got != LensCore {
		t.Errorf("expected fallback to core, got %q", got)
	}
}
