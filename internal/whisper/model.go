package whisper

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "medium"

const (
	modelFilePrefix = "ggml-"
	modelFileSuffix = ".bin"
)

// Model describes one member of the fixed valid-model set.
type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

var registry = map[string]Model{
	"tiny": {
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
	},
	"tiny.en": {
		Name:     "tiny.en",
		FileName: "ggml-tiny.en.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
	},
	"base": {
		Name:     "base",
		FileName: "ggml-base.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
	},
	"base.en": {
		Name:     "base.en",
		FileName: "ggml-base.en.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
	},
	"small": {
		Name:     "small",
		FileName: "ggml-small.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
	},
	"small.en": {
		Name:     "small.en",
		FileName: "ggml-small.en.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en.bin",
	},
	"medium": {
		Name:     "medium",
		FileName: "ggml-medium.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
	},
	"medium.en": {
		Name:     "medium.en",
		FileName: "ggml-medium.en.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.en.bin",
	},
	"large-v2": {
		Name:     "large-v2",
		FileName: "ggml-large-v2.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v2.bin",
	},
	"large-v3": {
		Name:     "large-v3",
		FileName: "ggml-large-v3.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
	},
}

// ModelNames returns the valid model identifiers in sorted order.
func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupModel resolves a model identifier against the fixed valid set.
func LookupModel(name string) (Model, bool) {
	model, ok := registry[strings.TrimSpace(name)]
	return model, ok
}

// PathIn returns the expected location of the model file inside dir.
func (m Model) PathIn(dir string) string {
	return filepath.Join(dir, m.FileName)
}

// InstalledModels lists the model names present in dir, derived from
// files matching the ggml-<name>.bin convention. A missing directory
// yields an empty list; any other read error is returned.
func InstalledModels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, modelFilePrefix) || !strings.HasSuffix(name, modelFileSuffix) {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(name, modelFilePrefix), modelFileSuffix)
		if trimmed != "" {
			names = append(names, trimmed)
		}
	}
	sort.Strings(names)
	return names, nil
}
