package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/internal/config"
	"github.com/cortexlabs/cortex/internal/pathfilter"
)

// Scanner discovers indexable files under one or more roots, applying the
// configured deny-list, dotfile, symlink, size, and extension rules.
type Scanner struct {
	cfg     config.ScanConfig
	exclude *pathfilter.Matcher
	deny    map[string]bool
}

// New builds a Scanner from a resolved ScanConfig.
func New(cfg config.ScanConfig) *Scanner {
	m := pathfilter.New()
	m.AddPatterns(cfg.ExcludePatterns)

	deny := make(map[string]bool, len(cfg.DenyDirs))
	for _, d := range cfg.DenyDirs {
		deny[d] = true
	}

	return &Scanner{cfg: cfg, exclude: m, deny: deny}
}

// Count walks every root and returns the number of files Scan would emit,
// without extracting any content. Used by the Coordinator to size progress
// totals before the extraction pass begins.
func (s *Scanner) Count(ctx context.Context, roots []string) (int, error) {
	total := 0
	for _, root := range roots {
		if err := s.validateRoot(root); err != nil {
			return 0, err
		}
		if err := s.walk(ctx, root, func(IndexJob) {
			total++
		}, func(Warning) {}); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Scan walks every root and streams eligible files as IndexJob values on
// the returned channel, with non-fatal problems streamed separately on the
// warnings channel. Both channels close when every root has been walked or
// ctx is cancelled. A root that cannot be opened fails synchronously with
// RootUnavailable before any walking begins.
func (s *Scanner) Scan(ctx context.Context, roots []string) (<-chan IndexJob, <-chan Warning, error) {
	for _, root := range roots {
		if err := s.validateRoot(root); err != nil {
			return nil, nil, err
		}
	}

	jobs := make(chan IndexJob, 256)
	warnings := make(chan Warning, 64)

	go func() {
		defer close(jobs)
		defer close(warnings)

		for _, root := range roots {
			emitJob := func(job IndexJob) {
				select {
				case jobs <- job:
				case <-ctx.Done():
				}
			}
			emitWarn := func(w Warning) {
				select {
				case warnings <- w:
				case <-ctx.Done():
				}
			}
			if err := s.walk(ctx, root, emitJob, emitWarn); err != nil {
				emitWarn(Warning{Path: root, Reason: err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return jobs, warnings, nil
}

// validateRoot confirms root exists and is a directory, returning
// RootUnavailable otherwise.
func (s *Scanner) validateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return cerrors.New(cerrors.RootUnavailable, "scan root is not accessible").
			WithDetail("root", root).
			WithDetail("cause", err.Error())
	}
	if !info.IsDir() {
		return cerrors.New(cerrors.RootUnavailable, "scan root is not a directory").
			WithDetail("root", root)
	}
	return nil
}

// walk performs a single filepath.WalkDir pass over root, invoking emitJob
// for every eligible file and emitWarn for every non-fatal problem. The
// root entry itself is always visited regardless of its name; dotfile
// filtering applies only to its descendants.
func (s *Scanner) walk(ctx context.Context, root string, emitJob func(IndexJob), emitWarn func(Warning)) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			emitWarn(Warning{Path: path, Reason: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		isRoot := path == rootAbs
		base := d.Name()

		if d.IsDir() {
			if isRoot {
				return nil
			}
			if s.deny[base] {
				return fs.SkipDir
			}
			if !s.cfg.VisitDotfiles && isDotfile(base) {
				return fs.SkipDir
			}
			if s.exclude.Match(relOrBase(rootAbs, path), true) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
			return nil
		}

		if !isRoot && !s.cfg.VisitDotfiles && isDotfile(base) {
			return nil
		}

		rel := relOrBase(rootAbs, path)
		if s.exclude.Match(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			emitWarn(Warning{Path: path, Reason: err.Error()})
			return nil
		}

		ext := extOf(base)
		if !s.extensionAllowed(ext) {
			return nil
		}

		if info.Size() > s.cfg.MaxFileSize {
			emitWarn(Warning{Path: path, Reason: "file exceeds configured max size"})
			return nil
		}

		emitJob(IndexJob{
			Path:     path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Ext:      ext,
			Priority: PriorityForSize(info.Size()),
		})
		return nil
	})
}

func (s *Scanner) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.AllowExtensions {
		if allowed == ext {
			return true
		}
	}
	return s.cfg.FallbackPlainText
}

// relOrBase returns path relative to root for pattern matching, falling
// back to the path itself if it cannot be made relative.
func relOrBase(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
