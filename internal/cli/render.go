package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/furrow-ag/furrow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render writes v to w in the requested format.
func Render(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderText(w io.Writer, v any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	switch x := v.(type) {
	case *domain.Receipt:
		fmt.Fprintf(tw, "op\t%s\n", x.Op)
		fmt.Fprintf(tw, "key\t%s\n", x.Key)
		fmt.Fprintf(tw, "event\t%s\n", x.EventID)
		if s := x.Settlement; s != nil {
			fmt.Fprintf(tw, "farmer\t%s +%d\n", s.Farmer, s.FarmerAmount)
			fmt.Fprintf(tw, "transporter\t%s +%d\n", s.Transporter, s.TransporterAmount)
		}
	case []domain.Event:
		fmt.Fprintln(tw, "TIME\tOP\tSIGNER\tSTATUS\tAMOUNT")
		for _, e := range x {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
				e.Timestamp.Format("2006-01-02T15:04:05Z"), e.Op, e.Signer, e.Status, e.Amount)
		}
	case []Outcome:
		for _, o := range x {
			if o.Error != "" {
				fmt.Fprintf(tw, "%d\t%s\tREJECTED\t%s\n", o.Index, o.Op, o.Error)
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\tOK\t%s\n", o.Index, o.Op, o.Receipt.EventID)
		}
	default:
		// Records read fine as YAML.
		tw.Flush()
		return Render(w, FormatYAML, v)
	}
	return tw.Flush()
}
