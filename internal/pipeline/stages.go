package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/category"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/tools"
)

// stagePrepareOutput creates the output root and every mirrored category
// subdirectory up front. Existing directories are left alone.
func stagePrepareOutput(ctx context.Context, bs *BuildState) error {
	for _, d := range bs.Dirs {
		if err := os.MkdirAll(bs.outputDir(d), 0o755); err != nil {
			return newFatalStageError("prepare_output", fmt.Errorf("create %s: %w", bs.outputDir(d), err))
		}
	}
	return nil
}

// classify finds the category a copied file belongs to within its directory,
// for manifest bookkeeping. Unrecognized extensions fall back to "other".
func classify(d categoryDir, name string) string {
	for _, c := range d.categories {
		if c.Matches(name) {
			return c.Key
		}
	}
	return "other"
}

// stageCopyAssets mirrors every non-empty source category directory into the
// output tree verbatim. Absent or empty directories are skipped with a log
// notice; that is not an error. Non-regular entries (symlinks and the like)
// never reach the published tree; they surface as a stage warning.
func stageCopyAssets(ctx context.Context, bs *BuildState) error {
	var skippedAll []string
	for _, d := range bs.Dirs {
		src := bs.sourceDir(d)
		hasFiles, err := fsutil.DirHasFiles(src)
		if err != nil {
			return newFatalStageError("copy_assets", err)
		}
		if !hasFiles {
			slog.Info("Skipping empty or missing source directory", logfields.Path(src))
			continue
		}

		copied, skipped, err := fsutil.CopyDir(ctx, src, bs.outputDir(d))
		if err != nil {
			if ctx.Err() != nil {
				return newCanceledStageError("copy_assets", ctx.Err())
			}
			return newFatalStageError("copy_assets", fmt.Errorf("copy %s: %w", src, err))
		}
		for _, rel := range copied {
			srcRel := path.Join(d.dir, rel)
			bs.Report.addArtifact(srcRel, classify(d, rel), srcRel)
		}
		for _, rel := range skipped {
			skippedAll = append(skippedAll, path.Join(d.dir, rel))
		}
		bs.Report.FilesCopied += len(copied)
		bs.Recorder.AddFilesProcessed(d.conventional, len(copied))
		slog.Info("Copied source directory", logfields.Path(src), logfields.Count(len(copied)))
	}
	if len(skippedAll) > 0 {
		return newWarnStageError("copy_assets",
			fmt.Errorf("skipped %d non-regular source entries: %s", len(skippedAll), strings.Join(skippedAll, ", ")))
	}
	return nil
}

// transformDir runs an external tool over every file in a source directory
// matching the predicate, writing the rewritten relative path into the
// mirrored output directory. A tool failure is fatal: processing stops at
// the offending file.
func transformDir(ctx context.Context, bs *BuildState, stage string, d categoryDir,
	tool tools.Tool, match func(string) bool, rewrite func(string) string, catKey string) (int, error) {

	src := bs.sourceDir(d)
	hasFiles, err := fsutil.DirHasFiles(src)
	if err != nil {
		return 0, newFatalStageError(stage, err)
	}
	if !hasFiles {
		slog.Info("Skipping empty or missing source directory", logfields.Stage(stage), logfields.Path(src))
		return 0, nil
	}
	if err := tool.Check(); err != nil {
		return 0, newFatalStageError(stage, err)
	}

	count := 0
	err = filepath.WalkDir(src, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if de.IsDir() || !match(de.Name()) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		outRel := rewrite(filepath.ToSlash(rel))
		outPath := filepath.Join(bs.outputDir(d), filepath.FromSlash(outRel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := tool.Run(ctx, path, outPath); err != nil {
			return err
		}
		srcRel := filepath.ToSlash(filepath.Join(d.dir, rel))
		bs.Report.addArtifact(filepath.ToSlash(filepath.Join(d.dir, filepath.FromSlash(outRel))), catKey, srcRel)
		count++
		slog.Info("Processed file", logfields.Stage(stage), logfields.File(rel), logfields.Tool(tool.Command()))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return count, newCanceledStageError(stage, ctx.Err())
		}
		return count, newFatalStageError(stage, err)
	}
	return count, nil
}

// stageConvertImages produces a WebP sibling for every convertible raster
// image under the images directory. SVG, GIF and already-WebP files are left
// to the verbatim copy.
func stageConvertImages(ctx context.Context, bs *BuildState) error {
	webp, _ := category.Lookup("webp")
	for _, d := range bs.Dirs {
		if d.conventional != "images" {
			continue
		}
		n, err := transformDir(ctx, bs, "convert_images", d,
			bs.Converter, category.IsRasterImage, webp.Rewrite, "webp")
		if err != nil {
			return err
		}
		bs.Report.ImagesConverted += n
		bs.Recorder.AddFilesProcessed("webp", n)
	}
	return nil
}

// minifyStage runs a minifier over one conventional directory. Minifier
// failures are fatal, matching the image-converter policy.
func minifyStage(ctx context.Context, bs *BuildState, stage, conventional string, tool tools.Tool) error {
	cat, ok := category.Lookup(conventional)
	if !ok {
		return newFatalStageError(stage, fmt.Errorf("unknown category %s", conventional))
	}
	for _, d := range bs.Dirs {
		if d.conventional != conventional {
			continue
		}
		n, err := transformDir(ctx, bs, stage, d, tool, cat.Matches, cat.Rewrite, cat.Key)
		if err != nil {
			return err
		}
		bs.Report.FilesMinified += n
		bs.Recorder.AddFilesProcessed(cat.Key, n)
	}
	return nil
}

func stageMinifyStyles(ctx context.Context, bs *BuildState) error {
	return minifyStage(ctx, bs, "minify_styles", "css", bs.CSSMin)
}

func stageMinifyScripts(ctx context.Context, bs *BuildState) error {
	return minifyStage(ctx, bs, "minify_scripts", "js", bs.JSMin)
}

// stageCopyCNAME propagates the custom-domain marker: src/CNAME wins, then
// the configured domain, otherwise nothing is written.
func stageCopyCNAME(ctx context.Context, bs *BuildState) error {
	srcCNAME := filepath.Join(bs.SourceRoot, "CNAME")
	dstCNAME := filepath.Join(bs.OutputRoot, "CNAME")

	if _, err := os.Stat(srcCNAME); err == nil {
		if err := fsutil.CopyFile(srcCNAME, dstCNAME); err != nil {
			return newFatalStageError("copy_cname", err)
		}
		bs.Report.addArtifact("CNAME", "cname", "CNAME")
		slog.Info("Copied CNAME", logfields.Path(srcCNAME))
		return nil
	}

	if domain := strings.TrimSpace(bs.Config.Repository.Domain); domain != "" {
		if err := os.WriteFile(dstCNAME, []byte(domain+"\n"), 0o644); err != nil {
			return newFatalStageError("copy_cname", fmt.Errorf("write CNAME: %w", err))
		}
		bs.Report.addArtifact("CNAME", "cname", "")
		slog.Info("Wrote CNAME from configured domain", slog.String("domain", domain))
		return nil
	}

	slog.Debug("No CNAME configured, skipping")
	return nil
}

// stageWriteManifest sizes and hashes every recorded artifact and writes the
// manifest into the output root.
func stageWriteManifest(ctx context.Context, bs *BuildState) error {
	for i := range bs.Report.Artifacts {
		a := &bs.Report.Artifacts[i]
		full := filepath.Join(bs.OutputRoot, filepath.FromSlash(a.Path))
		info, err := os.Stat(full)
		if err != nil {
			return newFatalStageError("write_manifest", fmt.Errorf("stat artifact %s: %w", a.Path, err))
		}
		a.Size = info.Size()
		sum, err := fsutil.HashFile(full)
		if err != nil {
			return newFatalStageError("write_manifest", err)
		}
		a.SHA256 = sum
	}
	m := manifest.New(bs.Report.RunID, bs.Config.Repository.BaseURL, bs.Report.Artifacts)
	if err := m.Write(bs.OutputRoot); err != nil {
		return newFatalStageError("write_manifest", err)
	}
	slog.Info("Wrote manifest", logfields.Count(len(m.Artifacts)))
	return nil
}
