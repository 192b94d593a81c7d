// Command pagedump decodes the pages of a heap table file and prints each
// page's slot header and occupied rows.
//
//	pagedump -table data/users.dat -types int,string [-names id,name] [-page 0] [-config kernel.ini]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"pagekernel/pkg/config"
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
	"pagekernel/pkg/utils/functools"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("pagedump: "+err.Error()))
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pagedump", flag.ContinueOnError)
	configPath := fs.String("config", "", "kernel configuration file (.ini or .toml)")
	tablePath := fs.String("table", "", "heap file to decode")
	typeList := fs.String("types", "", "comma separated column types: int, string, float, bool")
	nameList := fs.String("names", "", "optional comma separated column names")
	pageNo := fs.Int("page", -1, "dump only this page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tablePath == "" || *typeList == "" {
		fs.Usage()
		return dberr.Newf(dberr.ErrInvalidArg, "-table and -types are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if !logging.IsInitialized() {
		logCfg := cfg.Logging()
		if logCfg.OutputPath == "" {
			logCfg.Writer = os.Stderr
		}
		if err := logging.Init(logCfg); err != nil {
			return err
		}
		defer logging.Close()
	}

	td, err := parseSchema(*typeList, *nameList)
	if err != nil {
		return err
	}

	path := primitives.Filepath(*tablePath)
	if !path.Exists() {
		return dberr.Newf(dberr.ErrNotFound, "table file %s does not exist", path)
	}
	codec, err := page.CodecByName(cfg.Storage.BeforeImageCodec)
	if err != nil {
		return err
	}
	hf, err := heap.NewHeapFile(path, td, heap.WithImageCodec(codec))
	if err != nil {
		return err
	}
	defer hf.Close()

	pages, err := readPages(hf, *pageNo)
	if err != nil {
		return err
	}

	logging.WithTable(uint64(hf.GetID())).Debug("pages decoded", "path", path.String(), "pages", len(pages))
	fmt.Fprintln(out, renderReport(path.String(), td, pages))
	return nil
}

// parseSchema builds the tuple layout from the -types and -names flags.
// Unnamed columns are called col0, col1 and so on.
func parseSchema(typeList, nameList string) (*tuple.TupleDescription, error) {
	parts := strings.Split(typeList, ",")
	fieldTypes, err := functools.MapWithError(parts, types.ParseType)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeInvalidArg, "ParseSchema", "pagedump")
	}

	var names []string
	if strings.TrimSpace(nameList) != "" {
		names = functools.Map(strings.Split(nameList, ","), strings.TrimSpace)
		if len(names) != len(parts) {
			return nil, dberr.Newf(dberr.ErrInvalidArg, "%d names for %d types", len(names), len(parts))
		}
	} else {
		names = make([]string, len(parts))
		for i := range names {
			names[i] = fmt.Sprintf("col%d", i)
		}
	}

	return tuple.NewTupleDesc(fieldTypes, names)
}

// pageReport is the decoded content of one page.
type pageReport struct {
	pageNo primitives.PageNumber
	slots  int
	used   int
	rows   []slotRow
}

type slotRow struct {
	slot   int
	values []string
	digest string
}

// readPages decodes every page of hf, or just the page numbered only when
// that is not negative. Pages are read straight from disk without locks.
func readPages(hf *heap.HeapFile, only int) ([]pageReport, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	first, last := primitives.PageNumber(0), numPages
	if only >= 0 {
		if primitives.PageNumber(only) >= numPages {
			return nil, dberr.Newf(dberr.ErrInvalidArg, "page %d out of range, file has %d pages", only, numPages)
		}
		first, last = primitives.PageNumber(only), primitives.PageNumber(only)+1
	}

	reports := make([]pageReport, 0, last-first)
	for pageNo := first; pageNo < last; pageNo++ {
		p, err := hf.ReadPage(page.NewPageDescriptor(hf.GetID(), pageNo))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNo, err)
		}
		hp, ok := p.(*heap.HeapPage)
		if !ok {
			return nil, dberr.Newf(dberr.ErrCorruptPage, "page %d is not a heap page", pageNo)
		}

		report := pageReport{
			pageNo: pageNo,
			slots:  hp.NumSlots(),
			used:   hp.NumSlots() - hp.GetNumEmptySlots(),
		}
		for t := range hp.Tuples() {
			report.rows = append(report.rows, slotRow{
				slot:   int(t.RecordID.Slot),
				values: fieldStrings(t),
				digest: rowDigest(t),
			})
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// rowDigest identifies a row by value so the same row can be matched
// across dumps taken at different times.
func rowDigest(t *tuple.Tuple) string {
	return fmt.Sprintf("%016x", uint64(t.HashCode()))
}

func fieldStrings(t *tuple.Tuple) []string {
	n := t.TupleDesc.NumFields()
	out := make([]string, 0, n)
	for i := primitives.ColumnID(0); i < n; i++ {
		f, err := t.GetField(i)
		if err != nil {
			out = append(out, "?")
			continue
		}
		out = append(out, strings.TrimRight(f.String(), "\x00"))
	}
	return out
}
