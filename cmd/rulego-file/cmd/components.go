/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"fmt"
	"io"

	"github.com/rulego/rulego-components-file/engine"
	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/spf13/cobra"
)

var componentsJson bool

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the available node types and their settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printComponents(cmd.OutOrStdout(), componentsJson)
	},
}

func init() {
	componentsCmd.Flags().BoolVar(&componentsJson, "json", false, "print component forms as JSON")
	rootCmd.AddCommand(componentsCmd)
}

func printComponents(out io.Writer, asJson bool) error {
	forms := engine.Registry.GetComponentForms().Values()
	if asJson {
		b, err := json.MarshalIndent(forms)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	for _, form := range forms {
		fmt.Fprintf(out, "%-20s %-8s %s\n", form.Type, form.Category, form.Label)
		for _, field := range form.Fields {
			required := ""
			if field.Required {
				required = " (required)"
			}
			fmt.Fprintf(out, "    %-18s %-8s %v%s\n", field.Name, field.Type, field.DefaultValue, required)
		}
	}
	return nil
}
