package main

import (
	"github.com/goliatone/go-txcache/mapper"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mapper>...",
		Short: "Check mapper documents and list their statements",
		Long: `The validate command parses each mapper document, checks its structure
and prints the statements it would register.

Example:
  txcachectl validate users.yaml audit.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

type validatedMapper struct {
	File       string   `json:"file"`
	Namespace  string   `json:"namespace"`
	Cached     bool     `json:"cached"`
	Statements []string `json:"statements"`
}

func runValidate(paths []string) error {
	var out []validatedMapper
	for _, path := range paths {
		m, err := mapper.LoadFile(path)
		if err != nil {
			return err
		}
		_, cached := m.CacheConfig()

		v := validatedMapper{File: path, Namespace: m.Namespace, Cached: cached}
		for _, spec := range m.Statements {
			v.Statements = append(v.Statements, m.Namespace+"."+spec.ID)
		}
		out = append(out, v)
	}

	if jsonOut {
		return printJSON(out)
	}
	for _, v := range out {
		printInfo("%s: namespace %s, cache enabled: %t\n", v.File, v.Namespace, v.Cached)
		for _, id := range v.Statements {
			printInfo("  %s\n", id)
		}
	}
	return nil
}
