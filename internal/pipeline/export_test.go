package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/store"
	"go-elhub-stats/pkg/utils"
)

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, time.January, 31, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "elhub-markedsprosesser-20240131-154500.csv", ExportFileName("elhub-markedsprosesser", "csv", now))
}

func TestWriteDelimitedRoundTrip(t *testing.T) {
	spec, err := MarketProcessSpec(testConfig(t))
	require.NoError(t, err)
	jt, err := Load(context.Background(), spec, model.LoadOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteDelimited(&buf, jt.Table, ',')
	require.NoError(t, err)
	assert.Equal(t, jt.Len(), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	readSpec := model.SourceSpec{
		Name: "export",
		Schema: model.Schema{
			{Name: ColUsageDate, Type: model.TypeMonthYear},
			{Name: ColBRS, Type: model.TypeString},
			{Name: ColGroup, Type: model.TypeString},
			{Name: ColState, Type: model.TypeString},
			{Name: ColCount, Type: model.TypeInt, Nullable: true},
			{Name: ColYear, Type: model.TypeInt},
			{Name: ColMonth, Type: model.TypeInt},
		},
	}
	back, err := ReadDelimited(&buf, readSpec)
	require.NoError(t, err)
	assert.Equal(t, jt.Columns, back.Columns)
	require.Equal(t, jt.Len(), back.Len())

	// calendar columns come back as int64
	normalize := cmp.Transformer("int64", func(r model.Record) map[string]interface{} {
		out := make(map[string]interface{}, len(r))
		for k, v := range r {
			if i, ok := v.(int); ok {
				v = int64(i)
			}
			out[k] = v
		}
		return out
	})
	if diff := cmp.Diff(jt.Records, back.Records, normalize); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDelimitedTimestampsRoundTrip(t *testing.T) {
	spec, err := InstallationSpec(testConfig(t))
	require.NoError(t, err)
	jt, err := Load(context.Background(), spec, model.LoadOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = WriteDelimited(&buf, jt.Table, ';')
	require.NoError(t, err)

	back, err := ReadDelimited(&buf, model.SourceSpec{
		Delimiter: ';',
		Schema: model.Schema{
			{Name: ColValidFrom, Type: model.TypeTimestamp},
			{Name: ColValidTo, Type: model.TypeTimestamp, Nullable: true},
		},
	})
	require.NoError(t, err)
	require.Equal(t, jt.Len(), back.Len())
	for i := range jt.Records {
		want := jt.Records[i][ColValidFrom].(time.Time)
		got := back.Records[i][ColValidFrom].(time.Time)
		assert.True(t, want.Equal(got), "row %d: %v != %v", i, want, got)
	}
	assert.Nil(t, back.Records[0][ColValidTo])

	// sub-second precision survives the round trip
	precise := &model.Table{
		Columns: []string{ColValidFrom},
		Records: []model.Record{
			{ColValidFrom: time.Date(2021, 1, 15, 10, 0, 0, 123456000, time.UTC)},
			{ColValidFrom: time.Date(2021, 1, 15, 10, 0, 0, 1, time.UTC)},
		},
	}
	buf.Reset()
	_, err = WriteDelimited(&buf, precise, ',')
	require.NoError(t, err)
	back, err = ReadDelimited(&buf, model.SourceSpec{
		Schema: model.Schema{{Name: ColValidFrom, Type: model.TypeTimestamp}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())
	for i := range precise.Records {
		want := precise.Records[i][ColValidFrom].(time.Time)
		got := back.Records[i][ColValidFrom].(time.Time)
		assert.True(t, want.Equal(got), "row %d: %v != %v", i, want, got)
	}
}

func TestWriteWideDelimited(t *testing.T) {
	wide := &model.WideTable{
		RowKeys: []string{"month", "state"},
		Years:   []int{2021, 2022},
		Rows: []model.WideRow{
			{Key: []interface{}{1, "Completed"}, Cells: []model.NullFloat{model.Float(5), model.Float(4.5)}},
			{Key: []interface{}{2, "Completed"}, Cells: []model.NullFloat{{}, model.Float(0)}},
		},
	}

	var buf bytes.Buffer
	n, err := WriteWideDelimited(&buf, wide, ',')
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := "\ufeffmonth,state,2021,2022\n1,Completed,5,4.5\n2,Completed,,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	table := &model.Table{
		Columns: []string{"usage_date", "count"},
		Records: []model.Record{
			{"usage_date": model.YearMonth{Year: 2021, Month: time.March}, "count": int64(2)},
			{"usage_date": model.YearMonth{Year: 2021, Month: time.April}, "count": nil},
		},
	}
	wide := &model.WideTable{
		RowKeys: []string{"month"},
		Years:   []int{2021},
		Rows:    []model.WideRow{{Key: []interface{}{3}, Cells: []model.NullFloat{model.Float(-1)}}},
	}

	var buf bytes.Buffer
	n, err := WriteXLSX(&buf, TableSheet("rows", table), WideSheet("per-maaned", wide))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"rows", "per-maaned"}, f.GetSheetList())

	rows, err := f.GetRows("rows")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"usage_date", "count"}, {"Mar-21", "2"}, {"Apr-21"}}, rows)

	wideRows, err := f.GetRows("per-maaned")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"month", "2021"}, {"3", "-1"}}, wideRows)

	_, err = WriteXLSX(&buf)
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, "plusskunder", 2, []int{1, 2}))

	var got struct {
		ExportInfo struct {
			RecordCount int    `json:"record_count"`
			ExportType  string `json:"export_type"`
		} `json:"export_info"`
		Data []int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.ExportInfo.RecordCount)
	assert.Equal(t, "plusskunder", got.ExportInfo.ExportType)
	assert.Equal(t, []int{1, 2}, got.Data)
}

func TestSaveExport(t *testing.T) {
	require.NoError(t, store.InitDB(":memory:"))
	t.Cleanup(func() { store.Close() })

	om := utils.NewOutputManager(t.TempDir())
	result := SaveExport(om, "run-1", "out.csv", func(w io.Writer) (int, error) {
		_, err := io.WriteString(w, "a,b\n1,2\n")
		return 1, err
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "csv", result.Type)
	assert.Equal(t, "/api/v1/download/run-1/out.csv", result.URL)
	assert.Equal(t, filepath.Join(om.BaseOutputDir, "run-1", "out.csv"), result.Path)

	files, err := store.GetOutputFiles("run-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(8), files[0].FileSize)
	assert.Equal(t, 1, files[0].Records)
}

func TestSaveExportRemovesFailedFile(t *testing.T) {
	om := utils.NewOutputManager(t.TempDir())
	result := SaveExport(om, "run-1", "broken.csv", func(w io.Writer) (int, error) {
		io.WriteString(w, "partial")
		return 0, errors.New("disk full")
	})

	assert.False(t, result.Success)
	assert.True(t, strings.Contains(result.Error, "disk full"))
	_, err := os.Stat(result.Path)
	assert.True(t, os.IsNotExist(err))
}
