package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

type violation struct {
	file     string
	location string
	message  string
}

func newLintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Aliases:   []string{"l"},
		Usage:     "Check form documents against the form schema and structural rules",
		ArgsUsage: "<file or directory>...",
		Action: func(_ context.Context, command *cli.Command) error {
			paths := command.Args().Slice()
			if len(paths) == 0 {
				return errors.New("lint needs at least one file or directory")
			}

			files, err := lintTargets(paths)
			if err != nil {
				return err
			}
			var violations []violation
			for _, path := range files {
				linted, err := lintFile(path)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				violations = append(violations, linted...)
			}

			if len(violations) > 0 {
				reportViolations(os.Stderr, violations)
				return cli.Exit(fmt.Sprintf("%d problem(s) in %d file(s)", len(violations), countFiles(violations)), 1)
			}
			fmt.Fprintf(os.Stdout, "%d form document(s) OK\n", len(files))
			return nil
		},
	}
}

func isFormDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// lintTargets expands directories into the form documents they contain.
func lintTargets(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isFormDocument(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func lintFile(path string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	_, err = schema.DecodeBytes(filepath.Base(path), raw, schema.Strict())
	if err == nil {
		return nil, nil
	}

	var invalid *schema.ValidationError
	if !errors.As(err, &invalid) {
		return []violation{{file: path, location: "document", message: err.Error()}}, nil
	}
	result := make([]violation, 0, len(invalid.Issues))
	for _, issue := range invalid.Issues {
		location := issue.Path
		if location == "" {
			location = "document"
		}
		result = append(result, violation{file: path, location: location, message: issue.Message})
	}
	return result, nil
}

func reportViolations(w io.Writer, violations []violation) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
}

func countFiles(violations []violation) int {
	seen := make(map[string]struct{}, len(violations))
	for _, v := range violations {
		seen[v.file] = struct{}{}
	}
	return len(seen)
}
