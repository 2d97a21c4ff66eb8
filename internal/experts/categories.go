package experts

import (
	"strings"
)

const defaultDepth = 2

// directoryDepths is checked in order; the first matching prefix wins
var directoryDepths = []struct {
	prefix string
	depth  int
}{
	{"Parser", 1},
	{"PCbuild", 1},
	{"PC", 1},
	{"Mac", 1},
	{"Grammar", 1},
	{"Doc/library", 3},
	{"Doc/using", 3},
	{"Doc/whatsnew", 3},
	{"Include/cpython", 3},
	{"Include/internal", 3},
	{"Lib/test", 3},
	{"Lib/xml/", 3},
	{".azure-pipelines", 1},
	{".github", 1},
	{".vsts", 1},
}

var skipCategories = map[string]struct{}{
	"Python.framework": {},
	"TODO":             {},
	"f.py":             {},
	"j.py":             {},
	"t.py":             {},
	"x.py":             {},
	"Misc/ACKS":        {},
	"Misc/HISTORY":     {},
	"Misc/NEWS":        {},
	"Misc/NEWS.d":      {},
	"LICENSE":          {},
	"README.rst":       {},
	"Tools/README":     {},
}

// CategoryForFile returns the area of the source tree a file belongs to, or
// "" for files that are not worth an expert
func CategoryForFile(file string) string {
	depth := defaultDepth
	for _, d := range directoryDepths {
		if strings.HasPrefix(file, d.prefix) {
			depth = d.depth
			break
		}
	}

	parts := strings.Split(file, "/")
	if len(parts) > depth {
		parts = parts[:depth]
	}
	category := strings.Join(parts, "/")

	if _, skip := skipCategories[category]; skip {
		return ""
	}
	if strings.HasPrefix(category, "Lib/test") &&
		!strings.HasPrefix(category, "Lib/test/test_") &&
		!strings.HasPrefix(category, "Lib/test/_test") {
		return ""
	}
	return category
}

const (
	docLibrary     = "Doc/library/"
	internalModule = "Modules/_"
	libTest        = "Lib/test/test_"
	libUnderTest   = "Lib/test/_test_"
)

// Normalize folds documentation, test and C accelerator categories into the
// library module they belong to, when that module has a category of its own
func (c Categories) Normalize() {
	for _, old := range c.sorted() {
		if _, ok := c[old]; !ok {
			continue
		}

		var target string
		switch {
		case strings.HasPrefix(old, internalModule):
			name := strings.TrimPrefix(old, internalModule)
			name = strings.TrimSuffix(strings.TrimSuffix(name, ".c"), ".h")
			name = strings.TrimSuffix(name, "module")
			target = c.first("Lib/"+name, "Lib/"+name+".py")

		case strings.HasPrefix(old, docLibrary):
			name := strings.TrimPrefix(old, docLibrary)
			if strings.Contains(name, "xml") {
				name = strings.TrimSuffix(name, ".rst")
				parts := strings.Split(name, ".")
				if len(parts) > 2 {
					parts = parts[:2]
				}
				name = strings.Join(parts, "/")
			} else {
				name, _, _ = strings.Cut(name, ".")
			}
			if strings.Contains(name, "asyncio") {
				name = "asyncio"
			}
			target = c.first("Lib/"+name, "Lib/"+name+".py", "Modules/"+name+"module.c")

		case strings.HasPrefix(old, libUnderTest), strings.HasPrefix(old, libTest):
			name, ok := strings.CutPrefix(old, libUnderTest)
			if !ok {
				name = strings.TrimPrefix(old, libTest)
			}
			name = strings.TrimSuffix(name, ".py")
			target = c.first("Lib/"+name, "Lib/"+name+".py", "Modules/"+name+"module.c")
		}

		if target == "" || target == old {
			continue
		}
		for user, n := range c[old] {
			c[target][user] += n
		}
		delete(c, old)
	}
}

// first returns the first candidate that is a category
func (c Categories) first(candidates ...string) string {
	for _, candidate := range candidates {
		if _, ok := c[candidate]; ok {
			return candidate
		}
	}
	return ""
}
