package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/hlsub/filter"
	"github.com/s0up4200/hlsub/heyloyalty"
)

var (
	filterExpr   string
	outputFormat string
	refresh      bool
)

// listsCmd represents the lists command
var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "List Heyloyalty lists",
	Long: `List all lists on the Heyloyalty account, optionally narrowed by a
filter expression such as:

  hlsub lists --filter 'Name contains "news" and ID > 100'`,
	Args: cobra.NoArgs,
	RunE: runLists,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <list-id>",
	Short: "Show a single list and its fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(listCmd)

	listsCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	listsCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the list cache")
	for _, c := range []*cobra.Command{listsCmd, listCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	}
}

// listView is the printable form of a list
type listView struct {
	ID     int         `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Fields []fieldView `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type fieldView struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	Format  string   `json:"format,omitempty" yaml:"format,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

func newListView(list heyloyalty.List) listView {
	view := listView{ID: list.ID, Name: list.Name}
	for _, f := range list.Fields {
		fv := fieldView{Name: f.Name, Label: f.Label, Format: f.Format}
		for _, opt := range f.Options {
			fv.Options = append(fv.Options, fmt.Sprintf("%s=%s", opt.ID, opt.Label))
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func runLists(cmd *cobra.Command, args []string) error {
	if err := validateOutput(outputFormat); err != nil {
		return err
	}

	ctx := context.Background()
	lists, err := hlClient.ListAll(ctx, refresh)
	if err != nil {
		return err
	}

	if filterExpr != "" {
		logger.Debug().Str("filter", filterExpr).Msg("Filtering lists")

		f, err := filter.NewCompiler().Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		lists, err = filter.Apply(f, lists)
		if err != nil {
			return err
		}
	}

	views := make([]listView, 0, len(lists))
	for _, l := range lists {
		views = append(views, newListView(l))
	}
	slices.SortFunc(views, func(a, b listView) int { return a.ID - b.ID })

	return writeLists(os.Stdout, outputFormat, views)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validateOutput(outputFormat); err != nil {
		return err
	}

	id, err := parseListID(args[0])
	if err != nil {
		return err
	}

	list, err := hlClient.ListByID(context.Background(), id)
	if err != nil {
		return err
	}
	if list == nil {
		return fmt.Errorf("list %d not found", id)
	}

	view := newListView(*list)
	switch outputFormat {
	case "json", "yaml":
		return encode(os.Stdout, outputFormat, view)
	}

	fmt.Printf("%s (ID: %d)\n", view.Name, view.ID)
	if len(view.Fields) == 0 {
		fmt.Println("No fields")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tLABEL\tFORMAT\tOPTIONS")
	for _, f := range view.Fields {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", f.Name, f.Label, f.Format, len(f.Options))
	}
	return w.Flush()
}

func writeLists(out io.Writer, format string, views []listView) error {
	switch format {
	case "json", "yaml":
		return encode(out, format, views)
	}

	if len(views) == 0 {
		fmt.Fprintln(out, "No lists found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, v := range views {
		fmt.Fprintf(w, "%d\t%s\n", v.ID, v.Name)
	}
	return w.Flush()
}

func validateOutput(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("invalid output format: %s (must be table, json or yaml)", format)
}

func encode(out io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseListID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid list ID: %s", s)
	}
	return id, nil
}
