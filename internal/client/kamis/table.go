package kamis

import (
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoTable = errors.New("no table element in response")

// Table is the first HTML table of a market page: a header row plus data rows
// in document order. Cell text is trimmed but otherwise raw.
type Table struct {
	Columns []string
	Rows    [][]string
}

func ParseFirstTable(r io.Reader) (Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Table{}, err
	}

	sel := doc.Find("table").First()
	if sel.Length() == 0 {
		return Table{}, ErrNoTable
	}

	var out Table
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if ths := tr.Find("th"); ths.Length() > 0 && out.Columns == nil {
			ths.Each(func(_ int, th *goquery.Selection) {
				out.Columns = append(out.Columns, strings.TrimSpace(th.Text()))
			})
			return
		}
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		// A table without a <th> header uses its first row as the header.
		if out.Columns == nil {
			out.Columns = cells
			return
		}
		out.Rows = append(out.Rows, cells)
	})

	if out.Columns == nil {
		return Table{}, ErrNoTable
	}
	return out, nil
}
