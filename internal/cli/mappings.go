package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/mapping"
)

// MappingsCommand lists the configured mappings.
type MappingsCommand struct {
	MappingsFile string
	Out          io.Writer
}

func NewMappingsCommand() *MappingsCommand {
	return &MappingsCommand{Out: os.Stdout}
}

func (cmd *MappingsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("mappings", flag.ContinueOnError)

	fs.StringVar(&cmd.MappingsFile, "file", "", "YAML file with extra mappings (default: MAPPINGS_FILE)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s mappings [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the mappings a sync run can name.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.MappingsFile == "" {
		cmd.MappingsFile = config.NewConfig().Sync.MappingsFile
	}
	return nil
}

func (cmd *MappingsCommand) Run() error {
	registry, err := mapping.LoadRegistry(cmd.MappingsFile)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	out := cmd.Out
	if out == nil {
		out = os.Stdout
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tDESTINATION\tMETHOD\tID FIELD\tPAGINATION\tTRANSFORM")
	for _, m := range registry.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			m.Name, m.SourceEndpoint, m.DestinationEndpoint, m.Method, m.IDField, m.PaginationStyle, m.RequiresTransform)
	}
	return w.Flush()
}
