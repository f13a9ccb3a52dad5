package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionOutput is the --json shape for the version command.
type versionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show wampd version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := versionOutput{
			Version: Version,
			Commit:  Commit,
			Date:    BuildDate,
			Go:      runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
		}

		if versionJSON {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		version := out.Version
		if len(version) > 0 && version[0] != 'v' {
			version = "v" + version
		}
		fmt.Printf("wampd %s (%s, %s)\n", version, out.Commit, out.Date)
		fmt.Printf("%s %s/%s\n", out.Go, out.OS, out.Arch)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version in JSON format")
	rootCmd.AddCommand(versionCmd)
}
