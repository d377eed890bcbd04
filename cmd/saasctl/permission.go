package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

// permissionCmd represents the permission command
var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Inspect the permission catalogue",
	Long:  `Inspect the permissions roles can be granted.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'permission' requires a subcommand (list)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var permissionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered permission",
	Long: `List every registered permission with its description.

Example:
  saasctl permission list
  saasctl permission list --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		if err := listPermissions(os.Stdout, output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list permissions: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(permissionCmd)
	permissionCmd.AddCommand(permissionListCmd)
	permissionListCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func listPermissions(w io.Writer, output string) error {
	defs := permission.All()
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, d := range defs {
			fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
