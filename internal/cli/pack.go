package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/installer"
)

// NewPackCmd creates the pack command.
func NewPackCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "pack SRC",
		Short: "Build a package archive",
		Long: `Build a package archive from SRC, a directory holding meta/package.json
and the data/ tree to install. The archive is named after the package NEVRA.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd, args[0], outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "output-dir", "o", ".", "Directory to write the archive to")

	return cmd
}

func runPack(cmd *cobra.Command, src, outDir string) error {
	meta, err := installer.ReadMetadataFile(filepath.Join(src, filepath.FromSlash(installer.MetadataPath)))
	if err != nil {
		return err
	}
	out := filepath.Join(outDir, meta.PkgRef.String()+installer.FileExtension)
	if err := installer.Build(cmd.Context(), src, out); err != nil {
		return err
	}
	logger.Debug("Package built", logger.Fields{"package": meta.PkgRef.String(), "path": out})
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
