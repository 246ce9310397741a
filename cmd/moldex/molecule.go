package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	appMolecule "github.com/moldex-io/moldex/internal/application/molecule"
	"github.com/moldex-io/moldex/pkg/types/common"
)

func newMoleculeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "molecule",
		Short: "Look up and search stored molecules",
	}
	cmd.AddCommand(newMoleculeGetCommand(), newMoleculeSearchCommand())
	return cmd
}

func newMoleculeGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <molecule-id>",
		Short: "Fetch a molecule by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				mol, err := app.services.Molecule.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(mol)
			})
		},
	}
}

func newMoleculeSearchCommand() *cobra.Command {
	var (
		smilesContains  string
		formulaContains string
		status          string
		page            int
		pageSize        int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter molecules by substructure text, formula, or status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				result, err := app.services.Molecule.Filter(ctx, appMolecule.FilterInput{
					SMILESContains:  smilesContains,
					FormulaContains: formulaContains,
					Status:          status,
					Page:            common.PageRequest{Page: page, PageSize: pageSize},
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().StringVar(&smilesContains, "smiles-contains", "", "substring match against stored SMILES")
	cmd.Flags().StringVar(&formulaContains, "formula-contains", "", "substring match against molecular formula")
	cmd.Flags().StringVar(&status, "status", "", "filter by molecule status")
	cmd.Flags().IntVar(&page, "page", 1, "page number, 1-indexed")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")
	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
