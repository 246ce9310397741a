package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/moldex-io/moldex/pkg/types/common"
)

func newLibraryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage molecule libraries",
	}
	cmd.AddCommand(
		newLibraryCreateCommand(),
		newLibraryGetCommand(),
		newLibraryAddCommand(),
		newLibraryRemoveCommand(),
		newLibraryListMoleculesCommand(),
	)
	return cmd
}

func newLibraryCreateCommand() *cobra.Command {
	var description, owner, organization string
	var public bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				lib, err := app.services.Library.Create(ctx, args[0], description, owner, organization, public)
				if err != nil {
					return err
				}
				return printJSON(lib)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "library description")
	cmd.Flags().StringVar(&owner, "owner", "", "owning user id")
	cmd.Flags().StringVar(&organization, "organization", "", "owning organization id")
	cmd.Flags().BoolVar(&public, "public", false, "mark the library as publicly visible")
	return cmd
}

func newLibraryGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <library-id>",
		Short: "Fetch a library by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				lib, err := app.services.Library.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(lib)
			})
		},
	}
}

func newLibraryAddCommand() *cobra.Command {
	var addedBy string
	cmd := &cobra.Command{
		Use:   "add <library-id> <molecule-id>",
		Short: "Add a molecule to a library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				added, err := app.services.Library.AddMolecule(ctx, args[0], args[1], addedBy)
				if err != nil {
					return err
				}
				return printJSON(map[string]bool{"added": added})
			})
		},
	}
	cmd.Flags().StringVar(&addedBy, "added-by", "", "id of the user performing the add")
	return cmd
}

func newLibraryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <library-id> <molecule-id>",
		Short: "Remove a molecule from a library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				removed, err := app.services.Library.RemoveMolecule(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(map[string]bool{"removed": removed})
			})
		},
	}
}

func newLibraryListMoleculesCommand() *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "molecules <library-id>",
		Short: "List the molecule ids held by a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				result, err := app.services.Library.GetMolecules(ctx, args[0], common.PageRequest{Page: page, PageSize: pageSize})
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, 1-indexed")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")
	return cmd
}
