// Command hytaleregion is the thin external collaborator spec.md §6
// describes: command-line dispatch, folder-walking, and output-file
// naming around the core decoder packages. It owns none of the
// decoding logic itself.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/astei/hytaleregion/export"
	"github.com/astei/hytaleregion/internal/chunk"
	"github.com/astei/hytaleregion/internal/config"
	"github.com/astei/hytaleregion/internal/logging"
	"github.com/astei/hytaleregion/region"
)

func main() {
	app := &cli.App{
		Name:      "hytaleregion",
		Usage:     "decode Hytale .region.bin files into structured JSON",
		ArgsUsage: "<file-or-directory>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a .hytaleregion.yml defaults file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path (file when input is a file, directory or single world when input is a directory)"},
			&cli.BoolFlag{Name: "stdout", Usage: "write JSON to stdout instead of a file"},
			&cli.BoolFlag{Name: "compact", Usage: "emit compact JSON instead of indentation"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress progress output"},
			&cli.BoolFlag{Name: "summary-only", Aliases: []string{"s"}, Usage: "omit the per-voxel map, keep only the region summary"},
			&cli.BoolFlag{Name: "no-blocks", Usage: "exclude terrain blocks, keep only containers and block components"},
			&cli.BoolFlag{Name: "lenient", Usage: "report per-chunk decode failures instead of aborting the file"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hytaleregion:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("need a file or directory of .region.bin files", 1)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.Bool("lenient") {
		cfg.Mode = "lenient"
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	quiet := c.Bool("quiet")
	if quiet {
		logger = logging.New(io.Discard, "error")
	}

	mode := region.Strict
	if cfg.Mode == "lenient" {
		mode = region.Lenient
	}

	opts := runOptions{
		output:               c.String("output"),
		toStdout:             c.Bool("stdout"),
		compact:              c.Bool("compact"),
		summaryOnly:          c.Bool("summary-only"),
		includeTerrainBlocks: !c.Bool("no-blocks"),
		quiet:                quiet,
	}

	root := c.Args().Get(0)
	info, err := os.Stat(root)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		doc, summary, err := decodeRegion(c.Context, logger, root, mode, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", root, err)
		}
		logResult(logger, root, summary, doc)

		dest := opts.output
		if dest == "" {
			dest = filepath.Join(filepath.Dir(root), strings.TrimSuffix(filepath.Base(root), ".region.bin")+".json")
		}
		return writeOutput(dest, opts, doc)
	}

	// Directory mode: detect which of the three shapes the original
	// parser recognized (universe / chunks / flat) before falling back
	// to reporting no region files found, the way
	// original_source/src/hytale_region_parser/cli.py's
	// detect_folder_structure does.
	kind, worlds, err := detectFolderStructure(root)
	if err != nil {
		return err
	}
	if kind == structureEmpty {
		return cli.Exit(fmt.Sprintf("no .region.bin files found in %s", root), 1)
	}

	if !opts.quiet {
		total := 0
		for _, paths := range worlds {
			total += len(paths)
		}
		logger.Info("found region files", slog.Int("files", total), slog.Int("worlds", len(worlds)), slog.String("structure", string(kind)))
	}

	worldNames := make([]string, 0, len(worlds))
	for name := range worlds {
		worldNames = append(worldNames, name)
	}
	sort.Strings(worldNames)

	for _, worldName := range worldNames {
		paths := worlds[worldName]
		if !opts.quiet {
			logger.Info("processing world", slog.String("world", worldName), slog.Int("files", len(paths)))
		}

		merged, err := mergeWorld(c.Context, logger, paths, mode, opts)
		if err != nil {
			return err
		}

		dest := defaultWorldOutputName(kind, worldName)
		if opts.output != "" {
			if kind != structureUniverse || len(worlds) == 1 {
				dest = opts.output
			} else {
				dest = filepath.Join(opts.output, dest)
			}
		}
		if err := writeMergedOutput(dest, opts, merged); err != nil {
			return err
		}
	}
	return nil
}

type runOptions struct {
	output               string
	toStdout             bool
	compact              bool
	summaryOnly          bool
	includeTerrainBlocks bool
	quiet                bool
}

// folderStructure is the three-way shape the original distillation's
// detect_folder_structure recognized, plus the empty sentinel for "no
// region files anywhere under this path".
type folderStructure string

const (
	structureUniverse folderStructure = "universe"
	structureChunks   folderStructure = "chunks"
	structureFlat     folderStructure = "flat"
	structureEmpty    folderStructure = "empty"
)

// detectFolderStructure mirrors
// original_source/src/hytale_region_parser/cli.py's
// detect_folder_structure: a "chunks" folder read directly, a universe
// of "<world>/chunks/*.region.bin" folders, or a flat folder of
// "*.region.bin" files, in that priority order.
func detectFolderStructure(root string) (folderStructure, map[string][]string, error) {
	if filepath.Base(root) == "chunks" {
		if files := findRegionFiles(root); len(files) > 0 {
			worldName := filepath.Base(filepath.Dir(root))
			if worldName == "" || worldName == "." {
				worldName = "world"
			}
			return structureChunks, map[string][]string{worldName: files}, nil
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return structureEmpty, nil, err
	}

	worlds := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		chunksDir := filepath.Join(root, e.Name(), "chunks")
		if st, err := os.Stat(chunksDir); err == nil && st.IsDir() {
			if files := findRegionFiles(chunksDir); len(files) > 0 {
				worlds[e.Name()] = files
			}
		}
	}
	if len(worlds) > 0 {
		return structureUniverse, worlds, nil
	}

	if files := findRegionFiles(root); len(files) > 0 {
		return structureFlat, map[string][]string{"": files}, nil
	}

	return structureEmpty, nil, nil
}

func findRegionFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".region.bin") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func defaultWorldOutputName(kind folderStructure, worldName string) string {
	if kind == structureFlat {
		return "regions.json"
	}
	return worldName + ".json"
}

// worldOutput is the merged multi-file shape
// original_source/src/hytale_region_parser/cli.py's
// parse_multiple_files builds: one combined voxel map and block-count
// histogram across every region file belonging to a world, rather than
// export.Document's single-region shape.
type worldOutput struct {
	TotalChunks      int `json:"total_chunks"`
	TotalRegionFiles int `json:"total_region_files"`
	BlockCounts      map[string]int64              `json:"block_counts,omitempty"`
	Voxels           map[string]export.VoxelRecord `json:"voxels"`
}

func mergeWorld(ctx context.Context, logger *slog.Logger, paths []string, mode region.Mode, opts runOptions) (*worldOutput, error) {
	merged := &worldOutput{
		TotalRegionFiles: len(paths),
		BlockCounts:      make(map[string]int64),
		Voxels:           make(map[string]export.VoxelRecord),
	}

	for _, path := range paths {
		doc, summary, err := decodeRegion(ctx, logger, path, mode, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logResult(logger, path, summary, doc)

		merged.TotalChunks += summary.ChunkCount
		for name, count := range doc.BlockCounts {
			merged.BlockCounts[name] += count
		}
		for key, rec := range doc.Voxels {
			merged.Voxels[key] = rec
		}
	}
	return merged, nil
}

func decodeRegion(ctx context.Context, logger *slog.Logger, path string, mode region.Mode, opts runOptions) (*export.Document, *region.Summary, error) {
	it, err := region.Open(path, mode)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	var chunks []*chunk.ParsedChunk
	if !opts.summaryOnly {
		for {
			res, err := it.Next(ctx)
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, nil, err
			}
			if res.Failed != nil {
				logging.LogFailedChunk(logger, path, res.Failed.SlotIndex, res.Failed.Err)
				continue
			}
			chunks = append(chunks, res.Chunk)
		}
	}

	summary, err := it.Summary(ctx)
	if err != nil {
		return nil, nil, err
	}

	doc := export.ToDocument(summary, chunks, opts.includeTerrainBlocks)
	if err := export.Validate(doc); err != nil {
		return nil, nil, err
	}
	return doc, summary, nil
}

func logResult(logger *slog.Logger, path string, summary *region.Summary, doc *export.Document) {
	logger.Info("decoded region",
		slog.String("file", path),
		slog.Int("chunks", summary.ChunkCount),
		slog.Int("containers", summary.ContainerCount),
		slog.String("payload", humanize.Bytes(uint64(len(doc.Voxels)*64))),
	)
}

func writeOutput(dest string, opts runOptions, doc *export.Document) error {
	out, err := openOutput(dest, opts)
	if err != nil {
		return err
	}
	defer out.Close()
	return export.WriteJSON(out, doc, opts.compact)
}

func writeMergedOutput(dest string, opts runOptions, merged *worldOutput) error {
	out, err := openOutput(dest, opts)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(merged)
}

func openOutput(dest string, opts runOptions) (writeCloser, error) {
	if opts.toStdout {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(dest)
}

type writeCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }
