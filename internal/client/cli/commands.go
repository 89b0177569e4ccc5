package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/confessions/internal/client/client"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

func newIdentifyCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Obtain an identity token for this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exp, err := a.svc.Identify(cmd.Context(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity token valid until %s\n", exp.Local().Format(timeLayout))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the cached token")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "submit [text...]",
		Short: "Post a confession (one per 24 hours)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var loc *client.Location
			if cmd.Flags().Changed("lat") {
				loc = &client.Location{Lat: lat, Lon: lon}
			}

			resp, err := a.svc.Submit(cmd.Context(), content, loc)
			if err != nil {
				return err
			}
			if resp.Duplicate {
				fmt.Fprintln(cmd.OutOrStdout(), "Already posted, nothing to do.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted confession %s\n", resp.ConfessionID)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&lat, "lat", 0, "latitude, only used to pick a general location")
	f.Float64Var(&lon, "lon", 0, "longitude, only used to pick a general location")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	return cmd
}

func newFeedCmd(a *app) *cobra.Command {
	var (
		order, cursor string
		limit         int
		all           bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List confessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for {
				page, err := a.svc.Feed(cmd.Context(), order, cursor, limit)
				if err != nil {
					return err
				}
				for _, c := range page.Items {
					printConfession(out, c)
				}
				cursor = page.NextCursor
				if cursor == "" {
					return nil
				}
				if !all {
					fmt.Fprintf(out, "next page: --cursor %s\n", cursor)
					return nil
				}
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&order, "order", "trending", "trending or recent")
	f.StringVar(&cursor, "cursor", "", "cursor returned by a previous page")
	f.IntVar(&limit, "limit", 0, "page size (server default when 0)")
	f.BoolVar(&all, "all", false, "follow cursors to the end of the feed")
	return cmd
}

func printConfession(w io.Writer, c rpc.Confession) {
	fmt.Fprintf(w, "[%s] %s  views: %d", c.ID, c.CreatedAt.Local().Format(timeLayout), c.ViewCount)
	if c.Trending {
		fmt.Fprint(w, "  trending")
	}
	if c.GeneralLocation != "" {
		fmt.Fprintf(w, "  (%s)", c.GeneralLocation)
	}
	fmt.Fprintf(w, "\n%s\n\n", c.Content)
}

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Record a view of a confession",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.View(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "views: %d\n", n)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this device can post today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Posts from this device: %d\n", st.TotalPosts)
			if st.CanSubmit {
				fmt.Fprintln(out, "You can post today.")
				return nil
			}
			retry := time.Duration(st.RetryAfterSeconds) * time.Second
			fmt.Fprintf(out, "Next post possible in %s (at %s)\n",
				humanDuration(retry), st.NextEligibleAt.Local().Format(timeLayout))
			return nil
		},
	}
}
