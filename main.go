// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"x64lower/ir"
	"x64lower/util"
	"x64lower/x64"
)

var command = &cobra.Command{
	Use:   "x64lower linkage.json [-o output.asm]",
	Short: "lower a JSON linkage fixture to NASM-syntax x86-64 assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			util.Log.SetLevel(logrus.DebugLevel)
		}

		targetName, _ := cmd.Flags().GetString("target")
		target, err := parseTarget(targetName)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open linkage fixture: %w", err)
		}
		defer in.Close()

		linkage, err := ir.DecodeLinkage(in)
		if err != nil {
			return err
		}

		var w util.Writer
		if err := x64.LowerToX64(linkage, target, &w); err != nil {
			return fmt.Errorf("lower: %w", err)
		}

		if output == "" {
			_, err = fmt.Fprint(os.Stdout, w.String())
			return err
		}
		return os.WriteFile(output, []byte(w.String()), 0o644)
	},
}

func parseTarget(name string) (x64.Target, error) {
	switch name {
	case "sysv", "sysv-x64", "linux", "":
		return x64.TargetSysV, nil
	case "windows", "win64":
		return x64.TargetWindows, nil
	default:
		return 0, fmt.Errorf("unknown target %q (expected sysv-x64 or windows)", name)
	}
}

func init() {
	command.Flags().StringP("output", "o", "", "output file (default: stdout)")
	command.Flags().StringP("target", "t", "sysv-x64", "target platform: sysv-x64 or windows")
	command.Flags().BoolP("verbose", "v", false, "enable debug logging")
}

func main() {
	if err := command.Execute(); err != nil {
		util.Log.WithError(err).Error("x64lower failed")
		os.Exit(1)
	}
}
