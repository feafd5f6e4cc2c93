package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rustcore-go/image"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Pack a bootfs image",
	Long: `build assembles a bootfs image: every --artifact file is packed
under its basename, and a services.manifest entry is generated from the
--service flags, in the grammar the init service parses at boot.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var (
	buildOutput    string
	buildArtifacts []string
	buildServices  []string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "bootfs.img", "path to write the packed bootfs image to")
	buildCmd.Flags().StringArrayVar(&buildArtifacts, "artifact", nil, "path to a file to pack into the image (repeatable)")
	buildCmd.Flags().StringArrayVar(&buildServices, "service", nil, "name:artifact:entry[:cap1,cap2] service line (repeatable)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	var w image.Writer

	for _, path := range buildArtifacts {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read artifact %s: %w", path, err)
		}
		w.Add(filepath.Base(path), data)
	}

	specs, err := parseServiceFlags(buildServices)
	if err != nil {
		return err
	}
	image.SortServiceSpecs(specs)
	w.Add("services.manifest", image.BuildManifest(specs))

	data, err := w.Build()
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	if err := os.WriteFile(buildOutput, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", buildOutput, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %d services)\n", buildOutput, len(data), len(specs))
	return nil
}

// parseServiceFlags turns repeated --service name:artifact:entry[:caps]
// flags into ServiceSpecs, matching the manifest grammar bootfs parses.
func parseServiceFlags(flags []string) ([]image.ServiceSpec, error) {
	specs := make([]image.ServiceSpec, 0, len(flags))
	for _, flag := range flags {
		fields := strings.Split(flag, ":")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("invalid --service %q: want name:artifact:entry[:caps]", flag)
		}

		spec := image.ServiceSpec{
			Name:     fields[0],
			Artifact: fields[1],
			Entry:    fields[2],
		}
		if len(fields) == 4 && fields[3] != "" {
			spec.Capabilities = strings.Split(fields[3], ",")
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
