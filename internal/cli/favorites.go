package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parcelview/internal/models"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List and manage favorite parcels",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listFavorites(cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorite parcels",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listFavorites(cmd)
			},
		},
		newFavoritesAddCmd(a),
		&cobra.Command{
			Use:   "remove <parcel-id>",
			Short: "Remove a parcel from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSignedIn(); err != nil {
					return err
				}
				if err := a.client.RemoveFavorite(cmd.Context(), args[0]); err != nil {
					return describeAuthError("remove favorite", err)
				}
				fmt.Fprintf(a.stdout, "Removed %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newFavoritesAddCmd(a *app) *cobra.Command {
	var county, label string
	cmd := &cobra.Command{
		Use:   "add <parcel-id>",
		Short: "Add a parcel to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			var labelPtr *string
			if label != "" {
				labelPtr = &label
			}
			if err := a.client.AddFavorite(cmd.Context(), args[0], county, labelPtr); err != nil {
				return describeAuthError("add favorite", err)
			}
			fmt.Fprintf(a.stdout, "Added %s (%s)\n", args[0], county)
			return nil
		},
	}
	cmd.Flags().StringVar(&county, "county", "", "county the parcel belongs to")
	cmd.Flags().StringVar(&label, "label", "", "optional label")
	cmd.MarkFlagRequired("county")
	return cmd
}

func (a *app) listFavorites(cmd *cobra.Command) error {
	if err := a.requireSignedIn(); err != nil {
		return err
	}
	parcels, err := a.client.ListFavorites(cmd.Context())
	if err != nil {
		return describeAuthError("list favorites", err)
	}
	printFavorites(a.stdout, parcels)
	return nil
}

func printFavorites(w io.Writer, parcels []models.FavoriteParcel) {
	if len(parcels) == 0 {
		fmt.Fprintln(w, "No favorite parcels")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARCEL\tCOUNTY\tLABEL\tADDED")
	for _, p := range parcels {
		label := "-"
		if p.Label != nil {
			label = *p.Label
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ParcelID, p.County, label, p.CreatedAt.Format("2006-01-02"))
	}
	tw.Flush()
}
