package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/filters"
	"github.com/goliatone/go-include/pkg/includetag"
	"github.com/goliatone/go-include/pkg/partials"
)

type violation struct {
	file     string
	location string
	kind     string
	message  string
}

func main() {
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [dirs...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nCompile every template below the given directories and report malformed include tags.\n"); err != nil {
			panic(err)
		}
	}
	flag.Parse()

	dirs := flag.Args()
	if len(dirs) == 0 {
		dirs = []string{"templates"}
	}

	if err := includetag.Register(); err != nil {
		fmt.Fprintf(os.Stderr, "register include tag: %v\n", err)
		os.Exit(1)
	}
	if err := filters.RegisterDefaults(); err != nil {
		fmt.Fprintf(os.Stderr, "register filters: %v\n", err)
		os.Exit(1)
	}

	var violations []violation
	for _, dir := range dirs {
		linted, err := lintDir(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", dir, err)
			os.Exit(1)
		}
		violations = append(violations, linted...)
	}

	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].file == violations[j].file {
				return violations[i].location < violations[j].location
			}
			return violations[i].file < violations[j].file
		})
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "%s:%s [%s] %s\n", v.file, v.location, v.kind, v.message)
		}
		os.Exit(1)
	}
}

func lintDir(dir string) ([]violation, error) {
	src, err := partials.NewDirSource(dir)
	if err != nil {
		return nil, err
	}
	store := partials.NewStore(src)

	var result []violation
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if _, err := store.Partial(filepath.ToSlash(rel)); err != nil {
			result = append(result, describe(path, err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return result, nil
}

func describe(file string, err error) violation {
	v := violation{file: file, location: "-", kind: "compile", message: err.Error()}

	var pe *pongo2.Error
	if errors.As(err, &pe) && pe.Line > 0 {
		v.location = fmt.Sprintf("%d:%d", pe.Line, pe.Column)
	}
	if ie, ok := includetag.AsError(err); ok {
		v.kind = string(ie.Kind)
		v.message = ie.Msg
		if v.message == "" {
			v.message = ie.Error()
		}
		if len(ie.Frames) > 0 && ie.Frames[0].Line > 0 {
			v.location = fmt.Sprintf("%d:%d", ie.Frames[0].Line, ie.Frames[0].Col)
		}
	}
	return v
}
