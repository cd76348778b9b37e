package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"RouteDesk/internal/addresses"
	"RouteDesk/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Manage stored addresses and query the optimization API",
	Long: `Manage the stored address list and query the optimization API.

Subcommands:
  import    - Replace the stored address list from a JSON file
  list      - Print the stored addresses
  pairwise  - Fetch pairwise distances for the stored addresses
  solve     - Fetch the optimal solution for the stored addresses
  optimize  - Fetch both concurrently
  show      - Print stored pairwise or solution data`,
}

var addressesImportCmd = &cobra.Command{
	Use:   "import <file.json|->",
	Short: "Replace the stored address list",
	Args:  cobra.ExactArgs(1),
	RunE: withRepo(func(ctx context.Context, a *app, repo *store.Repository, cmd *cobra.Command, args []string) error {
		return importAddresses(ctx, repo, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
	}),
}

var addressesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored addresses",
	RunE: withRepo(func(ctx context.Context, a *app, repo *store.Repository, cmd *cobra.Command, args []string) error {
		return listAddresses(ctx, repo, cmd.OutOrStdout())
	}),
}

var addressesPairwiseCmd = &cobra.Command{
	Use:   "pairwise",
	Short: "Fetch and store pairwise distances",
	RunE: withClient(func(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error {
		return fetchPairwise(ctx, repo, client, out)
	}),
}

var addressesSolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Fetch and store the optimal solution",
	RunE: withClient(func(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error {
		return fetchSolution(ctx, repo, client, out)
	}),
}

var addressesOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Fetch pairwise distances and the optimal solution concurrently",
	RunE:  withClient(optimize),
}

var addressesShowCmd = &cobra.Command{
	Use:       "show <pairwise|solution>",
	Short:     "Print stored pairwise or solution data",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"pairwise", "solution"},
	RunE: withRepo(func(ctx context.Context, a *app, repo *store.Repository, cmd *cobra.Command, args []string) error {
		return show(ctx, repo, args[0], cmd.OutOrStdout())
	}),
}

func init() {
	addressesCmd.AddCommand(
		addressesImportCmd,
		addressesListCmd,
		addressesPairwiseCmd,
		addressesSolveCmd,
		addressesOptimizeCmd,
		addressesShowCmd,
	)
}

type repoFunc func(ctx context.Context, a *app, repo *store.Repository, cmd *cobra.Command, args []string) error

func withRepo(fn repoFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, store.NewRepository(a.store), cmd, args)
	}
}

type clientFunc func(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error

func withClient(fn clientFunc) func(*cobra.Command, []string) error {
	return withRepo(func(ctx context.Context, a *app, repo *store.Repository, cmd *cobra.Command, args []string) error {
		client, err := addresses.NewClient(a.cfg.AddressURL, a.logger, a.inst)
		if err != nil {
			return err
		}
		return fn(ctx, repo, client, cmd.OutOrStdout())
	})
}

func importAddresses(ctx context.Context, repo *store.Repository, path string, stdin io.Reader, out io.Writer) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read addresses: %w", err)
	}

	var list []addresses.Address
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to parse addresses: %w", err)
	}

	if err := repo.SetAddresses(ctx, list); err != nil {
		return err
	}
	fmt.Fprintf(out, "Stored %d addresses\n", len(list))
	return nil
}

func listAddresses(ctx context.Context, repo *store.Repository, out io.Writer) error {
	list, err := repo.GetAddresses(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No addresses stored.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADDRESS\tTIME CATEGORY")
	for _, a := range list {
		cat := "-"
		if a.TimeCategory != nil {
			cat = fmt.Sprint(*a.TimeCategory)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Address, cat)
	}
	return w.Flush()
}

func storedAddresses(ctx context.Context, repo *store.Repository) ([]addresses.Address, error) {
	list, err := repo.GetAddresses(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no addresses stored; run `routedesk addresses import` first")
	}
	return list, nil
}

func savePairwise(ctx context.Context, repo *store.Repository, raw json.RawMessage) ([]addresses.PairwiseRecord, error) {
	var records []addresses.PairwiseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unexpected pairwise response: %w", err)
	}
	return records, repo.SetPairwiseData(ctx, records)
}

func fetchPairwise(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error {
	list, err := storedAddresses(ctx, repo)
	if err != nil {
		return err
	}

	raw, err := client.PairwiseDistances(list).Do(ctx)
	if err != nil {
		return fmt.Errorf("pairwise request failed: %w", err)
	}

	records, err := savePairwise(ctx, repo, raw)
	if err != nil {
		return err
	}
	return printPairwise(out, records)
}

func fetchSolution(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error {
	list, err := storedAddresses(ctx, repo)
	if err != nil {
		return err
	}

	raw, err := client.OptimalSolution(list).Do(ctx)
	if err != nil {
		return fmt.Errorf("solution request failed: %w", err)
	}

	if err := repo.SetSolutionData(ctx, raw); err != nil {
		return err
	}
	return printJSON(out, raw)
}

// optimize issues both calls concurrently; a failing call does not cancel
// its sibling.
func optimize(ctx context.Context, repo *store.Repository, client *addresses.Client, out io.Writer) error {
	list, err := storedAddresses(ctx, repo)
	if err != nil {
		return err
	}

	var pairwiseRaw, solutionRaw json.RawMessage
	var g errgroup.Group
	g.Go(func() error {
		raw, err := client.PairwiseDistances(list).Do(ctx)
		if err != nil {
			return fmt.Errorf("pairwise request failed: %w", err)
		}
		pairwiseRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := client.OptimalSolution(list).Do(ctx)
		if err != nil {
			return fmt.Errorf("solution request failed: %w", err)
		}
		solutionRaw = raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	records, err := savePairwise(ctx, repo, pairwiseRaw)
	if err != nil {
		return err
	}
	if err := repo.SetSolutionData(ctx, solutionRaw); err != nil {
		return err
	}

	if err := printPairwise(out, records); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return printJSON(out, solutionRaw)
}

func show(ctx context.Context, repo *store.Repository, what string, out io.Writer) error {
	switch what {
	case "pairwise":
		records, err := repo.GetPairwiseData(ctx)
		if err != nil {
			return err
		}
		return printPairwise(out, records)
	case "solution":
		raw, err := repo.GetSolutionData(ctx)
		if err != nil {
			return err
		}
		if raw == nil {
			fmt.Fprintln(out, "No solution stored.")
			return nil
		}
		return printJSON(out, raw)
	default:
		return fmt.Errorf("unknown data set %q (want pairwise or solution)", what)
	}
}

func printPairwise(out io.Writer, records []addresses.PairwiseRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No pairwise data stored.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tDISTANCE\tDURATION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.From, r.To, r.Distance, r.Duration)
	}
	return w.Flush()
}

func printJSON(out io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
