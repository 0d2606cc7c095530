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

	"github.com/spf13/cobra"

	"github.com/hfpn-dev/hfpn/examples"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the built-in example nets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range examples.Names() {
			net := examples.Lookup(name)
			fmt.Printf("%-8s %d places, %d transitions, %d arcs\n",
				name, len(net.Places), len(net.Transitions), len(net.Arcs))
		}
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}
