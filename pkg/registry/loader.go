package registry

import (
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Overlay is the optional user-supplied registry seed file shape. Any of the
// three lists may be omitted; entries are appended to (never replace) the
// built-in seed data via mergo, the same append-friendly merge the teacher
// uses for builtin/user agent config (pkg/config/merge.go).
type Overlay struct {
	Courts        []Court              `yaml:"courts"`
	Reporters     []Reporter           `yaml:"reporters"`
	JudgeInitials []JudgeInitialsEntry `yaml:"judge_initials"`
}

// Registries bundles the three read-only singletons consumed by the
// enrichment stages. It is constructed once at executor startup and shared
// read-only thereafter (spec.md §3 "Ownership").
type Registries struct {
	Courts    *CourtRegistry
	Reporters *ReporterRegistry
	Judges    *JudgeInitialsMap
}

// Load builds Registries from the built-in seed data, optionally overlaid
// with a YAML file at overlayPath. An empty overlayPath (or a missing file)
// is not an error — the registries simply run with built-in data only.
func Load(overlayPath string) (*Registries, error) {
	overlay := Overlay{
		Courts:        builtinCourts(),
		Reporters:     builtinReporters(),
		JudgeInitials: builtinJudgeInitials(),
	}

	if overlayPath != "" {
		data, err := os.ReadFile(overlayPath)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Info("registry overlay not found, using built-in data only", "path", overlayPath)
			} else {
				return nil, fmt.Errorf("reading registry overlay %s: %w", overlayPath, err)
			}
		} else {
			var userOverlay Overlay
			if err := yaml.Unmarshal(data, &userOverlay); err != nil {
				return nil, fmt.Errorf("parsing registry overlay %s: %w", overlayPath, err)
			}
			if err := mergo.Merge(&overlay, userOverlay, mergo.WithAppendSlice); err != nil {
				return nil, fmt.Errorf("merging registry overlay %s: %w", overlayPath, err)
			}
			slog.Info("loaded registry overlay", "path", overlayPath,
				"courts", len(userOverlay.Courts), "reporters", len(userOverlay.Reporters),
				"judge_initials", len(userOverlay.JudgeInitials))
		}
	}

	return &Registries{
		Courts:    NewCourtRegistry(overlay.Courts),
		Reporters: NewReporterRegistry(overlay.Reporters),
		Judges:    NewJudgeInitialsMap(overlay.JudgeInitials),
	}, nil
}
