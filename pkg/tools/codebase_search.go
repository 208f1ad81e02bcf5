// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

const CodebaseSearchName = "codebase_search"

type CodebaseSearchInput struct {
	Query string `json:"query" jsonschema:"required,description=Natural language or identifier query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Number of snippets to return,minimum=1,maximum=50"`
	Path  string `json:"path,omitempty" jsonschema:"description=Directory to search relative to the working directory"`
}

// CodebaseSearchTool ranks source snippets under the working directory by
// how often the query terms occur in each window of lines.
type CodebaseSearchTool struct {
	cfg        config.CodebaseSearchConfig
	workingDir string
	schema     string
}

type snippet struct {
	path  string
	start int
	end   int
	score int
	text  string
}

func NewCodebaseSearchTool(cfg config.CodebaseSearchConfig, workingDir string) (*CodebaseSearchTool, error) {
	root, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.WindowLines <= 0 {
		cfg.WindowLines = 8
	}
	return &CodebaseSearchTool{
		cfg:        cfg,
		workingDir: root,
		schema:     inputSchema[CodebaseSearchInput](),
	}, nil
}

func (t *CodebaseSearchTool) Name() string { return CodebaseSearchName }

func (t *CodebaseSearchTool) Description() string {
	return `Search the codebase for snippets relevant to a query. Input: {"query": "...", "top_k": 5}`
}

func (t *CodebaseSearchTool) Enabled() bool {
	return config.BoolValue(t.cfg.Enabled, true)
}

func (t *CodebaseSearchTool) InputSchema() string { return t.schema }

func (t *CodebaseSearchTool) Execute(ctx context.Context, input string) (ToolResult, error) {
	var in CodebaseSearchInput
	if err := decodeInput(input, &in); err != nil {
		return Failed(CodebaseSearchName, FailureInvalidInput, "Invalid JSON input: %v", err), nil
	}
	terms := queryTerms(in.Query)
	if len(terms) == 0 {
		return Failed(CodebaseSearchName, FailureInvalidInput, "query must contain at least one searchable term"), nil
	}
	topK := in.TopK
	if topK <= 0 {
		topK = t.cfg.TopK
	}

	root := t.workingDir
	if in.Path != "" {
		root = filepath.Clean(filepath.Join(t.workingDir, in.Path))
		if !within(t.workingDir, root) {
			return Failed(CodebaseSearchName, FailurePermissionDenied, "Access denied: %s is outside the working directory", in.Path), nil
		}
	}
	if _, err := os.Stat(root); err != nil {
		return Failed(CodebaseSearchName, FailureNotFound, "Directory not found: %s", in.Path), nil
	}

	results, err := t.search(ctx, root, terms)
	if err != nil {
		if ctx.Err() != nil {
			return Failed(CodebaseSearchName, FailureTimeout, "Search cancelled: %v", err), nil
		}
		return Failed(CodebaseSearchName, FailureExecution, "Search failed: %v", err), nil
	}
	if len(results) == 0 {
		return Succeeded(CodebaseSearchName, fmt.Sprintf("No matches for %q", in.Query)), nil
	}
	if len(results) > topK {
		results = results[:topK]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d results for %q:\n", len(results), in.Query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s:%d-%d (score %d)\n%s\n", i+1, r.path, r.start, r.end, r.score, r.text)
	}
	res := Succeeded(CodebaseSearchName, strings.TrimRight(b.String(), "\n"))
	res.Metadata = map[string]any{"matches": len(results)}
	return res, nil
}

func (t *CodebaseSearchTool) search(ctx context.Context, root string, terms []string) ([]snippet, error) {
	exts := make(map[string]bool, len(t.cfg.Extensions))
	for _, e := range t.cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}
	excluded := make(map[string]bool, len(t.cfg.ExcludeDirs))
	for _, d := range t.cfg.ExcludeDirs {
		excluded[d] = true
	}

	var results []snippet
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || (t.cfg.MaxFileSize > 0 && info.Size() > t.cfg.MaxFileSize) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(t.workingDir, path)
		results = append(results, t.scoreFile(filepath.ToSlash(rel), string(data), terms)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].path != results[j].path {
			return results[i].path < results[j].path
		}
		return results[i].start < results[j].start
	})
	return results, nil
}

// scoreFile returns the best non-overlapping windows of one file.
func (t *CodebaseSearchTool) scoreFile(path, content string, terms []string) []snippet {
	lines := strings.Split(content, "\n")
	window := t.cfg.WindowLines
	step := window / 2
	if step < 1 {
		step = 1
	}

	nameBonus := 0
	lowerPath := strings.ToLower(path)
	for _, term := range terms {
		if strings.Contains(lowerPath, term) {
			nameBonus++
		}
	}

	var best []snippet
	lastEnd := 0
	for start := 0; start < len(lines); start += step {
		end := start + window
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		lower := strings.ToLower(text)

		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > 0 {
			s := snippet{path: path, start: start + 1, end: end, score: score + nameBonus, text: text}
			// Overlapping windows keep the higher scoring one.
			if n := len(best); n > 0 && start < lastEnd {
				if s.score > best[n-1].score {
					best[n-1] = s
					lastEnd = end
				}
			} else {
				best = append(best, s)
				lastEnd = end
			}
		}
		if end == len(lines) {
			break
		}
	}
	return best
}

// queryTerms lowercases the query and splits it into identifier-like words
// of at least two characters.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
