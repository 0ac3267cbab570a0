package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/maruel/natural"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// filePattern matches NWB files and their exported snapshots.
const filePattern = "**/*.{nwb,nwb.json,nwb.msgpack}"

// DiscoverFiles expands path into the files to inspect. A file is returned
// as-is; a directory is searched recursively, hidden directories included,
// skipping only "._" sidecar files.
func DiscoverFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s should be a directory or an NWB file: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(path), filePattern)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", path, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if skipped(match) {
			continue
		}
		files = append(files, filepath.Join(path, filepath.FromSlash(match)))
	}
	sort.Strings(files)
	return files, nil
}

// skipped reports platform sidecar files such as macOS "._" resource forks.
func skipped(rel string) bool {
	return strings.HasPrefix(path.Base(rel), "._")
}

// ResolveWorkers turns a requested job count into a worker count. Positive
// values are capped at the CPU count; zero and negative values count back from
// it, so -1 means every CPU.
func ResolveWorkers(n int) (int, error) {
	cpus := runtime.NumCPU()
	var workers int
	switch {
	case n > 0:
		workers = min(n, cpus)
	case n == -1:
		workers = cpus
	default:
		workers = cpus + n
	}
	if workers < 1 {
		return 0, fmt.Errorf("invalid number of jobs %d: only %d CPUs available", n, cpus)
	}
	return workers, nil
}

// InspectAll discovers and inspects every file under paths. Cross-file
// identifier messages come first, then each file's messages in file order.
func (i *Inspector) InspectAll(ctx context.Context, paths []string) ([]message.Message, error) {
	start := time.Now()

	var files []string
	for _, path := range paths {
		found, err := DiscoverFiles(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	files = lo.Uniq(files)

	out, err := i.duplicateIdentifiers(ctx, strings.Join(paths, ", "), files)
	if err != nil {
		return nil, err
	}

	results := make([][]message.Message, len(files))
	if len(files) > 0 {
		i.progress.Start(len(files))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(i.workers, len(files)))
		for idx, file := range files {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[idx] = i.InspectFile(gctx, file)
				i.progress.Advance(file)
				return nil
			})
		}
		err := g.Wait()
		i.progress.Finish()
		if err != nil {
			return nil, err
		}
	}

	for _, msgs := range results {
		out = append(out, msgs...)
	}

	slog.Info("inspection complete", "files", len(files), "messages", len(out), "workers", i.workers, "duration", time.Since(start))
	return out, nil
}

// duplicateIdentifiers emits one CRITICAL message per identifier shared by more
// than one file. Unreadable files are left to InspectFile to report.
func (i *Inspector) duplicateIdentifiers(ctx context.Context, root string, files []string) ([]message.Message, error) {
	ids := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(i.workers, len(files))))
	for idx, file := range files {
		g.Go(func() error {
			id, err := i.opener.ReadIdentifier(gctx, file)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Debug("identifier unreadable", "path", file, "error", err)
				return nil
			}
			ids[idx] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string][]string)
	var order []string
	for idx, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = append(byID[id], filepath.Base(files[idx]))
	}

	var out []message.Message
	for _, id := range order {
		names := byID[id]
		if len(names) < 2 {
			continue
		}
		sort.Sort(natural.StringSlice(names))
		quoted := lo.Map(names, func(name string, _ int) string { return "'" + name + "'" })
		out = append(out, message.Message{
			Message: fmt.Sprintf(
				"The identifier '%s' is used across the .nwb files: [%s]. The identifier of any NWBFile should be a completely unique value - we recommend using uuid4 to generate it.",
				id, strings.Join(quoted, ", ")),
			Importance:        message.Critical,
			Severity:          message.SeverityLow,
			CheckFunctionName: "check_unique_identifiers",
			ObjectType:        "NWBFile",
			ObjectName:        "root",
			Location:          "/",
			FilePath:          root,
		})
	}
	return out, nil
}
