// Command search-core builds and serves a TF-IDF search index.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "search-core",
		Short: "Build and serve a TF-IDF search index",
	}
	root.AddCommand(newBuildCommand())
	root.AddCommand(newServeCommand())
	return root
}
