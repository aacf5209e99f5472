package job

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prodex-cli/internal/model"
)

// Product is one row of a bulk input file.
type Product struct {
	ArticleNumber string `json:"article_number,omitempty"`
	ProductName   string `json:"product_name"`
}

// ReadProducts loads a bulk product list from an XLSX or CSV file. The first
// row is treated as a header. Column 0 is the product name, column 1 the
// optional article number; rows with an empty name are skipped.
func ReadProducts(path string) ([]Product, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, eris.Errorf("job: unsupported input format %q", filepath.Ext(path))
	}
}

func readXLSX(path string) ([]Product, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "job: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("job: xlsx file has no sheets")
	}

	var products []Product
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if p, ok := rowToProduct(cells); ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func readCSV(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "job: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var products []Product
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "job: read csv")
		}
		if first {
			first = false
			continue
		}
		if p, ok := rowToProduct(record); ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func rowToProduct(cells []string) (Product, bool) {
	var p Product
	if len(cells) > 0 {
		p.ProductName = strings.TrimSpace(cells[0])
	}
	if len(cells) > 1 {
		p.ArticleNumber = strings.TrimSpace(cells[1])
	}
	return p, p.ProductName != ""
}

// propertyFile is the YAML shape of a property definition file.
type propertyFile struct {
	Properties []propertyEntry `yaml:"properties"`
}

type propertyEntry struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	ExpectedFormat string `yaml:"expected_format"`
}

// LoadProperties reads the requested property definitions from a YAML file.
// Order in the file determines output order.
func LoadProperties(path string) ([]model.PropertyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "job: read properties file")
	}

	var pf propertyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "job: parse properties file")
	}
	if len(pf.Properties) == 0 {
		return nil, eris.New("job: properties file defines no properties")
	}

	props := make([]model.PropertyDefinition, 0, len(pf.Properties))
	for i, e := range pf.Properties {
		if strings.TrimSpace(e.Name) == "" {
			return nil, eris.Errorf("job: property %d has no name", i)
		}
		props = append(props, model.PropertyDefinition{
			Name:           e.Name,
			Description:    e.Description,
			ExpectedFormat: e.ExpectedFormat,
			OrderIndex:     i,
		})
	}
	return props, nil
}
