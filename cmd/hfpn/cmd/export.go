/*
Copyright © 2025 The hfpn authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hfpn-dev/hfpn/examples"
	"github.com/hfpn-dev/hfpn/petrifile"
)

var exportCmd = &cobra.Command{
	Use:   "export [example]",
	Short: "Write a built-in example as a net definition file",
	Long: `Write a built-in example net as a YAML definition on stdout,
as a starting point for a custom model to run with --file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net := examples.Lookup(args[0])
		if net == nil {
			return fmt.Errorf("unknown example %q (have: %s)", args[0], strings.Join(examples.Names(), ", "))
		}
		return petrifile.Save(os.Stdout, net)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
