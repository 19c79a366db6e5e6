// Package describe renders transaction skeletons as terminal tables so every
// lab step can show what it is about to sign.
package describe

import (
	"fmt"
	"io"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options selects the parts of a transaction to render.
type Options struct {
	ShowCellDeps   bool
	ShowInputs     bool
	ShowInputType  bool
	ShowInputData  bool
	ShowOutputs    bool
	ShowOutputType bool
	ShowOutputData bool
	ShowWitnesses  bool

	// Network renders lock scripts as addresses when set.
	Network address.Network
}

// DefaultOptions shows inputs and outputs with their type scripts and data.
func DefaultOptions() Options {
	return Options{
		ShowCellDeps:   true,
		ShowInputs:     true,
		ShowInputType:  true,
		ShowInputData:  true,
		ShowOutputs:    true,
		ShowOutputType: true,
		ShowOutputData: true,
	}
}

var capacityColumn = []table.ColumnConfig{{
	Name:        "Capacity",
	Align:       text.AlignRight,
	AlignFooter: text.AlignRight,
}}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)

	return t
}

// lockString renders a lock as an address or, failing that, as a script.
func lockString(lock *ckbwire.Script, net address.Network) string {
	if net != "" {
		if addr, err := address.Encode(lock, net); err == nil {
			return addr
		}
	}

	return ScriptString(lock)
}

// ScriptString renders a script on one line. Nil scripts are shown as "-".
func ScriptString(s *ckbwire.Script) string {
	if s == nil {
		return "-"
	}

	codeHash := s.CodeHash.String()

	return fmt.Sprintf("%s..%s %v %v", codeHash[:10],
		codeHash[len(codeHash)-4:], s.HashType, ckbutil.HexBytes(s.Args))
}

// dataString abbreviates long cell data.
func dataString(data []byte) string {
	const maxBytes = 24

	if len(data) <= maxBytes {
		return ckbutil.HexBytes(data).String()
	}

	return fmt.Sprintf("%v.. (%d bytes)",
		ckbutil.HexBytes(data[:maxBytes]), len(data))
}

func cellRow(idx int, out *ckbwire.CellOutput, data []byte, showType,
	showData bool, net address.Network) table.Row {

	row := table.Row{idx, out.Capacity.String(), lockString(&out.Lock, net)}
	if showType {
		row = append(row, ScriptString(out.Type))
	}
	if showData {
		row = append(row, dataString(data))
	}

	return row
}

func cellHeader(first string, showType, showData bool) table.Row {
	row := table.Row{first, "Capacity", "Lock"}
	if showType {
		row = append(row, "Type")
	}
	if showData {
		row = append(row, "Data")
	}

	return row
}

// Transaction writes the tables selected by opts followed by the capacity
// totals and the fee.
func Transaction(w io.Writer, s *txbuilder.Skeleton, opts Options) error {
	if opts.ShowCellDeps {
		t := newTable(w, "Cell deps")
		t.AppendHeader(table.Row{"#", "Out point", "Dep type"})
		for i, dep := range s.CellDeps {
			t.AppendRow(table.Row{i, dep.OutPoint.String(), dep.DepType})
		}
		t.Render()
	}

	in, out, err := totals(s)
	if err != nil {
		return err
	}

	if opts.ShowInputs {
		t := newTable(w, "Inputs")
		t.SetColumnConfigs(capacityColumn)
		t.AppendHeader(cellHeader(
			"#", opts.ShowInputType, opts.ShowInputData,
		))
		for i := range s.Inputs {
			cell := &s.Inputs[i]
			t.AppendRow(cellRow(
				i, &cell.Output, cell.Data, opts.ShowInputType,
				opts.ShowInputData, opts.Network,
			))
		}
		t.AppendFooter(table.Row{"Total", in.String()})
		t.Render()
	}

	if opts.ShowOutputs {
		t := newTable(w, "Outputs")
		t.SetColumnConfigs(capacityColumn)
		t.AppendHeader(cellHeader(
			"#", opts.ShowOutputType, opts.ShowOutputData,
		))
		for i := range s.Outputs {
			o := &s.Outputs[i]
			t.AppendRow(cellRow(
				i, &o.CellOutput, o.Data, opts.ShowOutputType,
				opts.ShowOutputData, opts.Network,
			))
		}
		t.AppendFooter(table.Row{"Total", out.String()})
		t.Render()
	}

	if opts.ShowWitnesses {
		t := newTable(w, "Witnesses")
		t.AppendHeader(table.Row{"#", "Witness"})
		for i, witness := range s.Witnesses {
			t.AppendRow(table.Row{i, dataString(witness)})
		}
		t.Render()
	}

	fee := "outputs exceed inputs"
	if f, ok := in.SafeSub(out); ok {
		fee = f.String()
	}
	_, err = fmt.Fprintf(w, "Inputs: %v  Outputs: %v  Fee: %s\n", in, out,
		fee)

	return err
}

func totals(s *txbuilder.Skeleton) (ckbutil.Capacity, ckbutil.Capacity,
	error) {

	in, err := s.InputCapacity()
	if err != nil {
		return 0, 0, err
	}
	out, err := s.OutputCapacity()
	if err != nil {
		return 0, 0, err
	}

	return in, out, nil
}

// Cells writes a table of live cells, as listed by the listcells command.
func Cells(w io.Writer, title string, cells []txbuilder.Cell,
	net address.Network) error {

	total, err := txbuilder.SumCapacity(cells)
	if err != nil {
		return err
	}

	t := newTable(w, title)
	t.SetColumnConfigs(capacityColumn)
	t.AppendHeader(table.Row{"Out point", "Capacity", "Lock", "Type",
		"Data"})
	for i := range cells {
		cell := &cells[i]
		t.AppendRow(table.Row{
			cell.OutPoint.String(), cell.Capacity().String(),
			lockString(&cell.Output.Lock, net),
			ScriptString(cell.Output.Type), dataString(cell.Data),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d cells", len(cells)),
		total.String()})
	t.Render()

	return nil
}
