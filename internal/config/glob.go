package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveInputs turns file arguments into a list of readable files. Plain
// paths keep their argument order; each glob expands to its sorted matches
// in place. Duplicates are dropped. Directories matched by a glob are
// skipped, while a directory named explicitly is an error.
func ResolveInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files provided")
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory", arg)
			}
			add(arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		n := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				add(m)
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
	}
	return files, nil
}
