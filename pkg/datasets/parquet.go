package datasets

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/promptpool/fpo/pkg/core"
	errs "github.com/promptpool/fpo/pkg/errors"
)

// LoadParquetCases reads test cases from a Parquet file with string columns
// id, domain, input and reference. The id and input columns are required,
// domain and reference may be absent. Null cells read as empty strings.
func LoadParquetCases(path string) ([]core.TestCase, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.ResourceNotFound, "case file does not exist"),
			errs.Fields{"path": path})
	}

	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "failed to open parquet case file"),
			errs.Fields{"path": path})
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "failed to read parquet case file"),
			errs.Fields{"path": path})
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "failed to read parquet schema"),
			errs.Fields{"path": path})
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "failed to read parquet table"),
			errs.Fields{"path": path})
	}
	defer table.Release()

	ids, err := requiredColumn(schema, table, "id")
	if err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}
	inputs, err := requiredColumn(schema, table, "input")
	if err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}
	domains, err := optionalColumn(schema, table, "domain")
	if err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}
	references, err := optionalColumn(schema, table, "reference")
	if err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}

	cases := make([]core.TestCase, len(ids))
	for i := range cases {
		cases[i] = core.TestCase{ID: ids[i], Input: inputs[i]}
		if domains != nil {
			cases[i].Domain = domains[i]
		}
		if references != nil {
			cases[i].Reference = references[i]
		}
	}

	if err := validateCases(cases); err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}
	return cases, nil
}

func requiredColumn(schema *arrow.Schema, table arrow.Table, name string) ([]string, error) {
	indices := schema.FieldIndices(name)
	if len(indices) == 0 {
		return nil, errs.WithFields(
			errs.New(errs.InvalidInput, "parquet case file is missing a required column"),
			errs.Fields{"column": name})
	}
	return stringColumn(table, indices[0])
}

func optionalColumn(schema *arrow.Schema, table arrow.Table, name string) ([]string, error) {
	indices := schema.FieldIndices(name)
	if len(indices) == 0 {
		return nil, nil
	}
	return stringColumn(table, indices[0])
}

func stringColumn(table arrow.Table, index int) ([]string, error) {
	col := table.Column(index)
	values := make([]string, 0, table.NumRows())
	for _, chunk := range col.Data().Chunks() {
		strs, ok := chunk.(*array.String)
		if !ok {
			return nil, errs.WithFields(
				errs.New(errs.InvalidInput, "parquet column is not a string column"),
				errs.Fields{"column": col.Name()})
		}
		for i := 0; i < strs.Len(); i++ {
			if strs.IsNull(i) {
				values = append(values, "")
				continue
			}
			values = append(values, strs.Value(i))
		}
	}
	return values, nil
}
