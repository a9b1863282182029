package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

type migrationFile struct {
	name    string
	version string
}

// migrationFiles lists the .sql files in dir sorted by name. Files whose names
// do not carry a version are returned with an empty version.
func migrationFiles(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var out []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		file := migrationFile{name: e.Name()}
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil {
			file.version = m[1]
		}
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// ValidateDir checks every migration in dir and reports all problems at once.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	var problems error
	seen := map[string]string{}
	for _, file := range files {
		if file.version == "" {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", file.name))
			continue
		}
		if prev, ok := seen[file.version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", file.version, prev, file.name))
		}
		seen[file.version] = file.name

		body, err := os.ReadFile(filepath.Join(dir, file.name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("read file %q: %w", file.name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(file.name, string(body)))
	}
	return problems
}

func checkAnnotations(name, txt string) error {
	up := strings.Index(txt, "-- +goose Up")
	down := strings.Index(txt, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case down < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}
	begins := strings.Count(txt, "-- +goose StatementBegin")
	ends := strings.Count(txt, "-- +goose StatementEnd")
	if begins != ends {
		return fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, begins, ends)
	}
	return nil
}
