package analyzer

import (
	"path"
	"strings"

	"codearena.app/arbiter/internal/model"
)

// sourceRoots are canonical directories whose files get the high tier.
var sourceRoots = map[string]bool{
	"src":       true,
	"lib":       true,
	"app":       true,
	"cmd":       true,
	"pkg":       true,
	"internal":  true,
	"contracts": true,
	"programs":  true, // anchor-style on-chain programs
}

// sourceExtensions are recognized source-code extensions (medium-high tier
// outside a canonical root).
var sourceExtensions = map[string]string{
	".go":    "Go",
	".rs":    "Rust",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".py":    "Python",
	".sol":   "Solidity",
	".move":  "Move",
	".java":  "Java",
	".kt":    "Kotlin",
	".rb":    "Ruby",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".swift": "Swift",
	".vy":    "Vyper",
	".zig":   "Zig",
	".ex":    "Elixir",
	".exs":   "Elixir",
}

// manifestExtensions and names are project manifests, config and docs
// (medium tier).
var manifestExtensions = map[string]bool{
	".md":      true,
	".yaml":    true,
	".yml":     true,
	".toml":    true,
	".json":    true,
	".sql":     true,
	".sh":      true,
	".proto":   true,
	".graphql": true,
}

var manifestNames = map[string]bool{
	"dockerfile":        true,
	"makefile":          true,
	"license":           true,
	"readme":            true,
	"go.mod":            true,
	"package.json":      true,
	"cargo.toml":        true,
	"pyproject.toml":    true,
	"requirements.txt":  true,
	"hardhat.config.js": true,
	"foundry.toml":      true,
}

// vendoredDirs mark generated or third-party trees (low tier regardless of
// extension).
var vendoredDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"__pycache__":  true,
	".git":         true,
	"venv":         true,
	".venv":        true,
	"coverage":     true,
}

// lockfileNames are generated dependency manifests; they carry no signal.
var lockfileNames = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"cargo.lock":        true,
	"go.sum":            true,
	"poetry.lock":       true,
	"composer.lock":     true,
	"gemfile.lock":      true,
}

// binaryExtensions are media/binary payloads (low tier).
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".webp": true, ".mp4": true, ".mov": true, ".mp3": true,
	".wav": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".wasm": true, ".so": true, ".dylib": true, ".dll": true, ".exe": true,
	".bin": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".map": true, ".lock": true,
}

// ClassifyPath labels one repository path with its relevance tier.
func ClassifyPath(p string) model.RelevanceTier {
	lower := strings.ToLower(p)
	base := path.Base(lower)
	ext := path.Ext(lower)

	segments := strings.Split(lower, "/")
	for _, seg := range segments[:len(segments)-1] {
		if vendoredDirs[seg] {
			return model.TierLow
		}
	}

	// Hidden files and directories, generated bundles, lockfiles.
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return model.TierLow
		}
	}
	if lockfileNames[base] || binaryExtensions[ext] || strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return model.TierLow
	}

	if _, isSource := sourceExtensions[ext]; isSource {
		if isTest(lower) {
			return model.TierMedium
		}
		if sourceRoots[segments[0]] {
			return model.TierHigh
		}
		return model.TierMediumHigh
	}

	if manifestExtensions[ext] || manifestNames[base] || strings.HasPrefix(base, "readme") || strings.HasPrefix(base, "license") {
		return model.TierMedium
	}

	return model.TierLow
}

// Language returns the language name for a source path, or "".
func Language(p string) string {
	return sourceExtensions[path.Ext(strings.ToLower(p))]
}

// isTest recognizes common test layouts across ecosystems.
func isTest(lower string) bool {
	base := path.Base(lower)
	if strings.HasSuffix(base, "_test.go") || strings.HasSuffix(base, ".test.ts") ||
		strings.HasSuffix(base, ".test.js") || strings.HasSuffix(base, ".spec.ts") ||
		strings.HasSuffix(base, ".spec.js") || strings.HasPrefix(base, "test_") {
		return true
	}
	for _, seg := range strings.Split(lower, "/") {
		if seg == "test" || seg == "tests" || seg == "__tests__" || seg == "spec" {
			return true
		}
	}
	return false
}
