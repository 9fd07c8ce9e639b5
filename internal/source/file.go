package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads patterns from a file. Files ending in .yaml or .yml are
// parsed as PatternFile (or a bare YAML list), anything else as plain text
// with one pattern per line and '#' comments.
type FileSource struct {
	Path string
}

func (f FileSource) FetchPatterns(context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns file %s: %w", f.Path, err)
	}

	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseText(data), nil
	}
}

func parseYAML(data []byte) ([]string, error) {
	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err == nil {
		return pf.Patterns, nil
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse patterns YAML: %w", err)
	}
	return list, nil
}

func parseText(data []byte) []string {
	var patterns []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
